package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
	"github.com/Niamh518/Dandi-curser-project/internal/usage"
)

func newSummarizeCmd() *cobra.Command {
	var (
		apiKey     string
		remote     string
		jsonOutput bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "summarize <github-url>",
		Short: "Summarize a GitHub repository",
		Long: `Summarize a GitHub repository with the configured language model.

The API key is checked against the local store before the model is called.
With --remote the request is sent to a running Dandi server instead.`,
		Example: `  dandi summarize https://github.com/go-chi/chi --api-key pk_...
  DANDI_API_KEY=pk_... dandi summarize https://github.com/go-chi/chi --remote http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = os.Getenv("DANDI_API_KEY")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var (
				summary *model.RepoSummary
				err     error
			)
			if remote != "" {
				summary, err = summarizeRemote(ctx, remote, apiKey, args[0])
			} else {
				summary, err = summarizeLocal(ctx, apiKey, args[0])
			}
			if err != nil {
				return err
			}
			return printSummary(summary, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to authenticate with (default: $DANDI_API_KEY)")
	cmd.Flags().StringVar(&remote, "remote", "", "Base URL of a running Dandi server")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "Overall request timeout")

	return cmd
}

func summarizeLocal(ctx context.Context, apiKey, repoURL string) (*model.RepoSummary, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	summarizer, err := newSummarizer(cfg)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	if summarizer == nil {
		return nil, fmt.Errorf("no %s api key configured (set llm.%s_api_key)", cfg.LLM.Provider, cfg.LLM.Provider)
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	touch := usage.RecorderFunc(func(keyID string, at time.Time) {
		st.TouchAPIKey(ctx, keyID, at)
	})
	if _, err := service.NewAuthService(st, touch).ValidateAPIKey(ctx, apiKey); err != nil {
		if service.IsCredentialError(err) && !errors.Is(err, service.ErrMissingCredential) {
			return nil, service.ErrInvalidCredential
		}
		return nil, err
	}

	summary, err := summarizer.Summarize(ctx, repoURL)
	if err != nil {
		return nil, cliError(err)
	}
	return summary, nil
}

func summarizeRemote(ctx context.Context, baseURL, apiKey, repoURL string) (*model.RepoSummary, error) {
	body, _ := json.Marshal(map[string]string{"repositoryUrl": repoURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/summarize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env model.Envelope
		json.NewDecoder(resp.Body).Decode(&env)
		if env.Error == "" {
			env.Error = resp.Status
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, env.Error)
	}

	var summary model.RepoSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, nil
}

func printSummary(s *model.RepoSummary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Println(s.Summary)
	if len(s.CoolFacts) > 0 {
		fmt.Println()
		for _, f := range s.CoolFacts {
			fmt.Printf("  • %s\n", f)
		}
	}
	return nil
}
