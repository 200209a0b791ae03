package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/examdiag/internal/api"
	"github.com/abhisek/examdiag/internal/paper"
	"github.com/abhisek/examdiag/internal/recognition"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <records.json>",
	Short: "Normalize raw question records into canonical questions",
	Long: `Reads {"questions": [...]} raw records, or a structured recognition
payload with --recognition, and prints the canonical questions as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromRecognition, _ := cmd.Flags().GetBool("recognition")

		var (
			recs  []paper.Record
			title string
		)
		if fromRecognition {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			p, err := recognition.ParsePaper(data)
			if err != nil {
				return err
			}
			recs, title = p.Records(), p.PageTitle
		} else {
			var req api.NormalizeRequest
			if err := readJSON(args[0], &req); err != nil {
				return err
			}
			recs = req.Questions
		}

		questions, err := paper.NormalizeAll(recs)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(api.QuestionsResponse{PageTitle: title, Questions: questions})
	},
}

func init() {
	normalizeCmd.Flags().Bool("recognition", false, "Input is a structured recognition payload")
}
