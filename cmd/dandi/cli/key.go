package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Niamh518/Dandi-curser-project/internal/model"
	"github.com/Niamh518/Dandi-curser-project/internal/service"
	"github.com/Niamh518/Dandi-curser-project/internal/store"
	"github.com/Niamh518/Dandi-curser-project/internal/usage"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, enable, disable, delete and validate the API keys that gate the summarizer.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyShowCmd())
	cmd.AddCommand(newKeyRenameCmd())
	cmd.AddCommand(newKeySetActiveCmd("revoke", "Disable an API key", false))
	cmd.AddCommand(newKeySetActiveCmd("activate", "Re-enable a disabled API key", true))
	cmd.AddCommand(newKeyDeleteCmd())
	cmd.AddCommand(newKeyValidateCmd())

	return cmd
}

// withKeyService opens the store for the duration of fn.
func withKeyService(fn func(ctx context.Context, st *store.Store, keys *service.KeyService) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	return fn(context.Background(), st, service.NewKeyService(st, cfg.Keys.Prefix))
}

// cliError unwraps service validation errors into their user message.
func cliError(err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return errors.New(ve.Message)
	}
	if errors.Is(err, service.ErrNotFound) {
		return errors.New("api key not found")
	}
	return err
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		name         string
		keyType      string
		monthlyLimit int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new active API key. The full secret is printed once here and is also visible in the dashboard.",
		Example: `  dandi key create --name "CI pipeline"
  dandi key create --name agent --type prod --monthly-limit 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.CreateKeyInput{Name: name, Type: model.KeyType(keyType)}
			if cmd.Flags().Changed("monthly-limit") {
				in.MonthlyLimit = &monthlyLimit
			}
			return runKeyCreate(in)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the key (required)")
	cmd.Flags().StringVar(&keyType, "type", "dev", "Key type: dev or prod")
	cmd.Flags().Int64Var(&monthlyLimit, "monthly-limit", 0, "Informational monthly request limit")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runKeyCreate(in service.CreateKeyInput) error {
	return withKeyService(func(ctx context.Context, _ *store.Store, keys *service.KeyService) error {
		key, err := keys.Create(ctx, in)
		if err != nil {
			return cliError(err)
		}

		fmt.Println("API Key created:")
		fmt.Println()
		fmt.Printf("  ID:     %s\n", key.ID)
		fmt.Printf("  Name:   %s\n", key.Name)
		fmt.Printf("  Type:   %s\n", key.Type)
		fmt.Printf("  Secret: %s\n", key.Secret)
		if key.MonthlyLimit != nil {
			fmt.Printf("  Limit:  %d / month\n", *key.MonthlyLimit)
		}
		return nil
	})
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		jsonOutput  bool
		showSecrets bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput, showSecrets)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print full secrets instead of masked ones")

	return cmd
}

func runKeyList(jsonOutput, showSecrets bool) error {
	return withKeyService(func(ctx context.Context, _ *store.Store, keys *service.KeyService) error {
		list, err := keys.List(ctx)
		if err != nil {
			return cliError(err)
		}

		if !showSecrets {
			for i := range list {
				list[i].Secret = maskSecret(list[i].Secret)
			}
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}

		if len(list) == 0 {
			fmt.Println("No API keys yet. Use 'dandi key create' to create one.")
			return nil
		}

		fmt.Printf("%-38s %-20s %-5s %-8s %-12s %s\n", "ID", "NAME", "TYPE", "ACTIVE", "SECRET", "LAST USED")
		fmt.Printf("%-38s %-20s %-5s %-8s %-12s %s\n", "--", "----", "----", "------", "------", "---------")
		for _, k := range list {
			active := "yes"
			if !k.IsActive {
				active = "no"
			}
			lastUsed := "never"
			if k.LastUsedAt != nil {
				lastUsed = k.LastUsedAt.Local().Format(time.DateTime)
			}
			fmt.Printf("%-38s %-20s %-5s %-8s %-12s %s\n", k.ID, truncate(k.Name, 20), k.Type, active, k.Secret, lastUsed)
		}
		return nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// ---------- key show ----------

func newKeyShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		showSecret bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyShow(args[0], jsonOutput, showSecret)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showSecret, "show-secret", false, "Print the full secret instead of a masked one")

	return cmd
}

func runKeyShow(id string, jsonOutput, showSecret bool) error {
	return withKeyService(func(ctx context.Context, _ *store.Store, keys *service.KeyService) error {
		key, err := keys.Get(ctx, id)
		if err != nil {
			return cliError(err)
		}
		if !showSecret {
			key.Secret = maskSecret(key.Secret)
		}
		return printKey(os.Stdout, key, jsonOutput)
	})
}

func printKey(w io.Writer, key *model.APIKey, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(key)
	}

	active := "yes"
	if !key.IsActive {
		active = "no"
	}
	limit := "none"
	if key.MonthlyLimit != nil {
		limit = fmt.Sprintf("%d / month", *key.MonthlyLimit)
	}
	lastUsed := "never"
	if key.LastUsedAt != nil {
		lastUsed = key.LastUsedAt.Local().Format(time.DateTime)
	}

	fmt.Fprintf(w, "ID:        %s\n", key.ID)
	fmt.Fprintf(w, "Name:      %s\n", key.Name)
	fmt.Fprintf(w, "Type:      %s\n", key.Type)
	fmt.Fprintf(w, "Active:    %s\n", active)
	fmt.Fprintf(w, "Secret:    %s\n", key.Secret)
	fmt.Fprintf(w, "Limit:     %s\n", limit)
	fmt.Fprintf(w, "Created:   %s\n", key.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Last used: %s\n", lastUsed)
	return nil
}

// ---------- key rename ----------

func newKeyRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return updateKey(service.UpdateKeyInput{ID: args[0], Name: &name}, "Renamed")
		},
	}
}

// ---------- key revoke / activate ----------

func newKeySetActiveCmd(use, short string, active bool) *cobra.Command {
	verb := "Disabled"
	if active {
		verb = "Enabled"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateKey(service.UpdateKeyInput{ID: args[0], IsActive: &active}, verb)
		},
	}
}

func updateKey(in service.UpdateKeyInput, verb string) error {
	return withKeyService(func(ctx context.Context, _ *store.Store, keys *service.KeyService) error {
		key, err := keys.Update(ctx, in)
		if err != nil {
			return cliError(err)
		}
		fmt.Printf("%s API key %q (%s)\n", verb, key.Name, key.ID)
		return nil
	})
}

// ---------- key delete ----------

func newKeyDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Permanently delete an API key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Printf("Delete API key %s? [y/N] ", args[0])
				var answer string
				fmt.Scanln(&answer)
				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					fmt.Println("Aborted.")
					return nil
				}
			}
			return runKeyDelete(args[0])
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runKeyDelete(id string) error {
	return withKeyService(func(ctx context.Context, _ *store.Store, keys *service.KeyService) error {
		key, err := keys.Delete(ctx, id)
		if err != nil {
			return cliError(err)
		}
		fmt.Printf("Deleted API key %q (%s)\n", key.Name, key.ID)
		return nil
	})
}

// ---------- key validate ----------

func newKeyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [secret]",
		Short: "Check whether a secret is a valid, active API key",
		Long:  "Validate a secret the same way the API does. The secret is prompted for without echo when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := ""
			if len(args) == 1 {
				secret = args[0]
			} else {
				fmt.Print("API key: ")
				b, err := term.ReadPassword(int(os.Stdin.Fd()))
				if err != nil {
					return fmt.Errorf("failed to read key: %w", err)
				}
				fmt.Println()
				secret = string(b)
			}
			return runKeyValidate(secret)
		},
	}
}

func runKeyValidate(secret string) error {
	return withKeyService(func(ctx context.Context, st *store.Store, _ *service.KeyService) error {
		// Record synchronously so the last-used time is written before exit.
		touch := usage.RecorderFunc(func(keyID string, at time.Time) {
			st.TouchAPIKey(ctx, keyID, at)
		})
		principal, err := service.NewAuthService(st, touch).ValidateAPIKey(ctx, secret)
		switch {
		case errors.Is(err, service.ErrMissingCredential):
			return err
		case service.IsCredentialError(err):
			// Unknown and disabled keys are reported alike.
			return service.ErrInvalidCredential
		case err != nil:
			return err
		}
		fmt.Printf("API key is valid: %s (%s)\n", principal.Name, principal.ID)
		return nil
	})
}
