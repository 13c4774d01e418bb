package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/dependencies/random"
	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/services/identity"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Token management commands",
	}

	cmd.AddCommand(newTokenIssueCmd())

	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var userID, name, secret, issuer string
	var save bool

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token locally with the server's secret",
		Long: `Sign a bearer token for a user with the same secret the server verifies with.

The secret defaults to TTT_JWT_SECRET. With --save the token is written to the
token file and used by later commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or TTT_JWT_SECRET is required")
			}
			if name == "" {
				name = userID
			}

			svc, err := identity.New(identity.Config{
				Secret: secret,
				Issuer: issuer,
			}, clock.New(), random.New())
			if err != nil {
				return err
			}

			token, err := svc.Issue(model.UserID(userID), name)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			if save {
				if err := cfg.SaveToken(token); err != nil {
					return fmt.Errorf("failed to save token: %w", err)
				}
			}

			out := NewOutput(cfg.Output)
			out.Print(TokenResult{UserID: userID, Token: token})
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the user id)")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("TTT_JWT_SECRET"), "Signing secret (env: TTT_JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", getEnvOrDefault("TTT_JWT_ISSUER", identity.DefaultConfig().Issuer), "Token issuer (env: TTT_JWT_ISSUER)")
	cmd.Flags().BoolVar(&save, "save", false, "Write the token to the token file")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
