package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Niamh518/Dandi-curser-project/internal/service"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect dashboard user profiles",
		Long:  "List, show and delete the profiles created when users sign in to the dashboard.",
	}

	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileDeleteCmd())

	return cmd
}

func withProfileService(fn func(ctx context.Context, profiles *service.ProfileService) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	return fn(context.Background(), service.NewProfileService(st))
}

func newProfileListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileService(func(ctx context.Context, profiles *service.ProfileService) error {
				list, err := profiles.List(ctx)
				if err != nil {
					return err
				}

				if jsonOutput {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}

				if len(list) == 0 {
					fmt.Println("No profiles yet. They are created on first dashboard sign-in.")
					return nil
				}

				fmt.Printf("%-30s %-30s %-24s %s\n", "ID", "EMAIL", "NAME", "CREATED")
				fmt.Printf("%-30s %-30s %-24s %s\n", "--", "-----", "----", "-------")
				for _, p := range list {
					fmt.Printf("%-30s %-30s %-24s %s\n", truncate(p.ID, 30), truncate(p.Email, 30), truncate(p.FullName, 24), p.CreatedAt.Local().Format(time.DateOnly))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileService(func(ctx context.Context, profiles *service.ProfileService) error {
				p, err := profiles.Get(ctx, args[0])
				if err != nil {
					return profileError(err)
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			})
		},
	}
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a profile",
		Long:    "Delete a profile. It is recreated from the identity provider the next time the user signs in.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileService(func(ctx context.Context, profiles *service.ProfileService) error {
				if err := profiles.Delete(ctx, args[0]); err != nil {
					return profileError(err)
				}
				fmt.Printf("Deleted profile %s\n", args[0])
				return nil
			})
		},
	}
}

func profileError(err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return errors.New("profile not found")
	}
	return cliError(err)
}
