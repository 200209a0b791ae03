package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/examdiag/internal/api"
	"github.com/abhisek/examdiag/internal/paper"
	"github.com/abhisek/examdiag/internal/ui/components"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <request.json>",
	Short: "Diagnose a batch request file and print the report",
	Long: `Reads a batch-diagnose request ({"questions": [...], "answers": [...]}),
the same body POST /api/v1/paper/batch-diagnose accepts, and prints the report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
			cfg.Batch.Concurrency = n
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		width, _ := cmd.Flags().GetInt("width")

		var req api.BatchDiagnoseRequest
		if err := readJSON(args[0], &req); err != nil {
			return err
		}
		if len(req.Questions) == 0 {
			return errors.New("request has no questions")
		}
		questions, err := paper.NormalizeAll(req.Questions)
		if err != nil {
			return err
		}

		log, err := cliLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := cmd.Context()
		svc, closeStore, err := buildService(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()

		res, err := svc.Diagnose(ctx, questions, req.Answers)
		if err != nil {
			return fmt.Errorf("diagnose: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Fprint(out, components.Report(res, width))
		return nil
	},
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func init() {
	diagnoseCmd.Flags().Bool("json", false, "Print the raw JSON result")
	diagnoseCmd.Flags().Int("concurrency", 0, "Max concurrent oracle calls (overrides batch.concurrency)")
	diagnoseCmd.Flags().Int("width", 80, "Report width in columns")
}
