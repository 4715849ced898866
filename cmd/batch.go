package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theopenlane/detectify/internal/analyzer"
)

var batchCmd = &cobra.Command{
	Use:   "batch [url...]",
	Short: "classify a list of urls and print the batch result as json",
	Run: func(cmd *cobra.Command, args []string) {
		err := batch(cmd.Context(), args)
		cobra.CheckErr(err)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().String("file", "", "read urls from a file, one per line")
}

func batch(ctx context.Context, args []string) error {
	urls := args

	if path := k.String("file"); path != "" {
		lines, err := readLines(path)
		if err != nil {
			return err
		}

		urls = append(urls, lines...)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	defer svc.Close()

	id, err := svc.analyzer.StartBatch(analyzer.CleanURLs(urls))
	if err != nil {
		return err
	}

	log.Info().Str("run_id", id).Int("urls", len(urls)).Msg("batch started")

	run, err := svc.analyzer.WaitForRun(ctx, id)
	if err != nil {
		return fmt.Errorf("waiting for batch %s: %w", id, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encoding batch result: %w", err)
	}

	return nil
}

// readLines returns the non-empty lines of a url list file
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening url list: %w", err)
	}
	defer f.Close()

	var lines []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading url list: %w", err)
	}

	return analyzer.CleanURLs(lines), nil
}
