package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/tictactoe-go/internal/api/response"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match commands",
	}

	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchMovesCmd())
	cmd.AddCommand(newMatchMoveCmd())
	cmd.AddCommand(newMatchAbandonCmd())

	return cmd
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <match-id>",
		Short: "Show a match and its board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Match

			if err := client.Get("/api/v1/matches/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchMovesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "moves <match-id>",
		Short: "List the moves of a match in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []response.Move

			if err := client.Get("/api/v1/matches/"+args[0]+"/moves", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <match-id> <position>",
		Short: "Place your mark (positions 0-8, row-major)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("position must be an integer: %w", err)
			}

			req := map[string]int{"position": position}
			var result response.MoveResult

			if err := client.Post("/api/v1/matches/"+args[0]+"/moves", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchAbandonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <match-id>",
		Short: "Leave an active match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Match

			if err := client.Post("/api/v1/matches/"+args[0]+"/abandon", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
