package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Niamh518/Dandi-curser-project/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Dandi configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default dandi.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", "dandi.yaml", "Where to write the file")

	return cmd
}

func runConfigInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("Set llm.openai_api_key (or DANDI_LLM_OPENAI_API_KEY), then run 'dandi serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(reveal)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print secrets instead of masking them")

	return cmd
}

func runConfigShow(reveal bool) error {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Printf("# Config file: %s\n", configFile)
	} else {
		fmt.Println("# Config file: (none found, using defaults and environment)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !reveal {
		for _, s := range []*string{
			&cfg.Auth.SessionSecret,
			&cfg.OAuth.ClientSecret,
			&cfg.LLM.OpenAIAPIKey,
			&cfg.LLM.AnthropicAPIKey,
			&cfg.Queue.RedisPassword,
			&cfg.Database.DSN,
		} {
			if *s != "" {
				*s = maskSecret(*s)
			}
		}
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
