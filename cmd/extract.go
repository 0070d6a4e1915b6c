package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/safer-cli/internal/extract"
	"github.com/sells-group/safer-cli/internal/model"
	"github.com/sells-group/safer-cli/internal/notify"
)

var extractFile string

// extractOutput is the JSON printed by the extract command.
type extractOutput struct {
	Record      model.CarrierRecord `json:"record"`
	DisplayName string              `json:"display_name"`
	FieldsFound int                 `json:"fields_found"`
	Notifiable  bool                `json:"notifiable"`
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Parse a saved carrier registration detail page",
	Long:  "Runs the field extraction over detail-page text (a file, or - for stdin) and prints the record as JSON. Useful for checking the patterns against a captured page without a browser.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		text, err := readInput(cmd.InOrStdin(), extractFile)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(buildExtractOutput(text))
	},
}

func buildExtractOutput(text string) extractOutput {
	record := extract.Extract(text)
	name := model.Unavailable
	if record.LegalName != model.Unavailable {
		name = notify.DisplayName(record.LegalName)
	}
	return extractOutput{
		Record:      record,
		DisplayName: name,
		FieldsFound: record.FieldsFound(),
		Notifiable:  record.HasEmail(),
	}
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", eris.Wrap(err, "extract: read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: read %s", path)
	}
	return string(data), nil
}

func init() {
	extractCmd.Flags().StringVar(&extractFile, "file", "", "detail page text file, or - for stdin (required)")
	_ = extractCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(extractCmd)
}
