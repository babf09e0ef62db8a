// Package httpclient wraps net/http for fetching remote images.
//
// Requests are single-shot: no retry, no redirect override, and no status
// or content-type check. A non-2xx answer is handed back like any other
// response; only transport failures are errors.
//
// # Usage
//
//	client := httpclient.NewClient(httpclient.DefaultOptions())
//	resp, err := client.Get(ctx, url)
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()
package httpclient
