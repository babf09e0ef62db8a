package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sheet-image-fetcher/internal/column"
	"sheet-image-fetcher/internal/fetch"
	"sheet-image-fetcher/internal/store"
	"sheet-image-fetcher/internal/workbook"
)

func runSheets(cmd *cobra.Command, args []string) error {
	sheets, err := workbook.SheetNames(args[0])
	if err != nil {
		return err
	}
	for _, name := range sheets {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.Default()

	sheet, err := workbook.ReadSheet(inputPath, sheetName)
	if err != nil {
		return err
	}
	col, err := column.Resolve(sheet.Headers, columnName)
	if err != nil {
		return fmt.Errorf("%w (use --column)", err)
	}
	links, err := sheet.Column(col)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	batch := fetch.NewBatch(sheetName, links)
	handle := newFetcher(cfg, logger).Start(ctx, batch, fetch.LogObserver{Logger: logger})
	report := handle.Wait()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s: %d/%d images written to %s in %v\n",
		report.BatchID, report.Written(), report.Total, report.Dir, report.Duration().Round(time.Millisecond))
	for _, fe := range report.Errors() {
		fmt.Fprintf(out, "  %v\n", fe)
	}

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
		meta := store.BatchMeta{File: filepath.Base(inputPath), Sheet: sheetName}
		if err := history.RecordBatch(context.Background(), meta, report); err != nil {
			return fmt.Errorf("record batch: %w", err)
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if history == nil {
		return fmt.Errorf("no history configured (set history.driver or IMAGEFETCH_HISTORY_DRIVER)")
	}
	defer history.Close()

	ctx := cmd.Context()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	if historyBatch != "" {
		items, err := history.BatchItems(ctx, historyBatch)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "#\tSTATUS\tHTTP\tBYTES\tURL\tERROR")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", it.Index, it.Status, it.HTTPStatus, it.Bytes, it.URL, it.Error)
		}
		return nil
	}

	batches, err := history.ListBatches(ctx, historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tFILE\tSHEET\tWRITTEN\tFAILED\tSTARTED")
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			b.ID, b.File, b.Sheet, b.Written, b.Total, b.Failed, b.StartedAt.Local().Format(time.DateTime))
	}
	return nil
}
