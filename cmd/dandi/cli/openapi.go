package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Niamh518/Dandi-curser-project/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long: `Generate the OpenAPI 3.1 specification for the Dandi HTTP API. The same
document is served by 'dandi serve' at /openapi.json.`,
		Example: `  dandi openapi
  dandi openapi --base-url https://dandi.example.com -o openapi.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(baseURL, outputFile)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL to include in the document")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")

	return cmd
}

func runOpenAPI(baseURL, outputFile string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	doc := openapi.Generate(openapi.Options{
		BaseURL:         baseURL,
		Version:         versionString(),
		APIKeyHeader:    cfg.Auth.APIKeyHeader,
		SessionRequired: cfg.SessionRequired(),
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	if outputFile == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(outputFile, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write spec: %w", err)
	}
	fmt.Printf("Wrote %s\n", outputFile)
	return nil
}
