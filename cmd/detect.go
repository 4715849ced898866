package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <url>",
	Short: "classify a single url and print the result as json",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := detect(cmd.Context(), args[0])
		cobra.CheckErr(err)
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringSlice("hint", nil, "vendor reported by a previous run, re-verified before it is reported again")
	detectCmd.Flags().Bool("force", false, "ignore any cached classification")
	detectCmd.Flags().Bool("diagnostics", false, "include per-stage diagnostics in the output")
}

func detect(ctx context.Context, url string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	defer svc.Close()

	hints := k.Strings("hint")

	analyze := svc.analyzer.Analyze
	if k.Bool("force") {
		analyze = svc.analyzer.Retry
	}

	res := analyze(ctx, url, hints...)

	if !k.Bool("diagnostics") {
		res.Diagnostics = nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	return nil
}
