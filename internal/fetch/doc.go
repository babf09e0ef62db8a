// Package fetch downloads an ordered list of image links into one folder.
//
// A batch is a single linear pass: link i (1-based) is fetched and its body
// written to image_<i>.jpg. A failing link is logged and skipped and the
// pass continues. Progress is reported after every attempt, whether it
// succeeded or not.
//
// # Usage
//
//	f := fetch.New(client, utils.NewFolderManager("./downloads"), logger)
//	h := f.Start(context.Background(), fetch.NewBatch("Products", links), fetch.LogObserver{Logger: logger})
//	report := h.Wait() // optional; HTTP callers drop the handle
package fetch
