package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/tictactoe-go/internal/api/response"
)

func newInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <user-id>",
		Short: "Invite an online user to a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"to_user_id": args[0]}
			var result response.Invitation

			if err := client.Post("/api/v1/invitations", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <invitation-id>",
		Short: "Accept an invitation and start the match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Match

			if err := client.Post("/api/v1/invitations/"+args[0]+"/accept", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <invitation-id>",
		Short: "Reject an invitation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Invitation

			if err := client.Post("/api/v1/invitations/"+args[0]+"/reject", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
