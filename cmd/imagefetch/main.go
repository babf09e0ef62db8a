// Package main provides the CLI entry point for the sheet image fetcher.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"sheet-image-fetcher/internal/config"
	"sheet-image-fetcher/internal/fetch"
	"sheet-image-fetcher/internal/httpclient"
	"sheet-image-fetcher/internal/store"
	"sheet-image-fetcher/internal/workbook"
	"sheet-image-fetcher/pkg/utils"
)

var (
	configPath   string
	sheetName    string
	columnName   string
	historyLimit int
	historyBatch string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "imagefetch",
		Short: "Download the images linked from a spreadsheet",
		Long: `imagefetch serves a small web page where a spreadsheet can be uploaded,
a sheet picked, and every image link in that sheet downloaded into a local folder.
Without a subcommand it starts the server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (env vars override it)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	sheetsCmd := &cobra.Command{
		Use:   "sheets [input.xlsx]",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runSheets,
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch [input.xlsx]",
		Short: "Download the images of one sheet in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE:  runFetch,
	}
	fetchCmd.Flags().StringVarP(&sheetName, "sheet", "s", "", "Sheet to read (also the destination folder)")
	fetchCmd.Flags().StringVar(&columnName, "column", "", "Column to use when no header mentions image or background")
	fetchCmd.MarkFlagRequired("sheet")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded batches",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of batches to list")
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "Show the per-link outcomes of one batch")

	rootCmd.AddCommand(serveCmd, sheetsCmd, fetchCmd, historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newFetcher(cfg config.Config, logger *log.Logger) *fetch.Fetcher {
	opts := httpclient.DefaultOptions()
	opts.Timeout = cfg.Fetch.Timeout
	opts.UserAgent = cfg.Fetch.UserAgent
	return fetch.New(httpclient.NewClient(opts), utils.NewFolderManager(cfg.DownloadDir), logger)
}

func newIngest(cfg config.Config, logger *log.Logger) *workbook.Ingest {
	return workbook.NewIngest(utils.NewFolderManager(cfg.UploadDir), cfg.AllowedExtensions, logger)
}

// openHistory returns nil when no history driver is configured.
func openHistory(cfg config.Config) (*store.Store, error) {
	if cfg.History.Driver == "" {
		return nil, nil
	}
	s, err := store.Open(cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		return nil, fmt.Errorf("open history (%s): %w", cfg.History.Driver, err)
	}
	return s, nil
}
