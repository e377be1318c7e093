package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Niamh518/Dandi-curser-project/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve and the OpenAPI document
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dandi",
		Short: "API key management and GitHub repository summaries",
		Long: `Dandi issues and validates API keys and uses them to gate a GitHub
repository summarizer backed by a language model.

It ships a JSON API, a small dashboard, an MCP server for AI agents and an
optional Redis-backed worker for usage tracking.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dandi.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.dandi)")

	cobra.OnInitialize(initConfig)

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newSummarizeCmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig registers defaults and environment bindings on the global
// viper instance and reads the config file if there is one.
func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)

	path := cfgFile
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return // config file is optional
	}
	if err := config.ReadFile(v, path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return
	}
	v.SetConfigFile(path)
}

// findConfigFile looks for dandi.yaml in the working directory and then in
// ~/.dandi.
func findConfigFile() string {
	candidates := []string{"dandi.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, home+"/.dandi/dandi.yaml")
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		} else if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	return ""
}
