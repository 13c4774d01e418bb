package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcoot/tictactoe-go/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.User:
		o.printUser(v)
	case response.Presence:
		o.printPresence(v)
	case response.Invitation:
		o.printInvitation(v)
	case response.Match:
		o.printMatch(v)
	case response.MoveResult:
		o.printMoveResult(v)
	case []response.Move:
		o.printMoves(v)
	case []response.LogEntry:
		o.printLogs(v)
	case TokenResult:
		o.printTokenResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// TokenResult is printed by token issue
type TokenResult struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func (o *Output) printUser(u response.User) {
	fmt.Printf("User: %s (%s)\n", u.DisplayName, u.ID)
	fmt.Printf("Online: %s\n", yesNo(u.IsOnline))
}

func (o *Output) printPresence(p response.Presence) {
	fmt.Printf("Online (%d):\n", p.Count)
	for _, id := range p.Users {
		fmt.Printf("  - %s\n", id)
	}
}

func (o *Output) printInvitation(inv response.Invitation) {
	fmt.Printf("Invitation: %s\n", inv.ID)
	fmt.Printf("From: %s\n", inv.FromUserID)
	fmt.Printf("To: %s\n", inv.ToUserID)
	fmt.Printf("Status: %s\n", inv.Status)
	fmt.Printf("Expires: %s\n", inv.ExpiresAt.Format(time.RFC3339))
}

func (o *Output) printMatch(m response.Match) {
	fmt.Printf("Match: %s\n", m.ID)
	fmt.Printf("X: %s\n", m.Player1ID)
	fmt.Printf("O: %s\n", m.Player2ID)
	fmt.Printf("Status: %s\n", m.Status)
	if m.CurrentPlayerID != nil {
		fmt.Printf("To move: %s\n", *m.CurrentPlayerID)
	}
	if m.WinnerID != nil {
		fmt.Printf("Winner: %s\n", *m.WinnerID)
	}
	fmt.Println()
	o.printBoard(m.Board)
}

// printBoard draws the grid with empty cells showing their position
func (o *Output) printBoard(cells []*string) {
	if len(cells) == 0 {
		return
	}

	for row := range 3 {
		marks := make([]string, 3)
		for col := range 3 {
			i := row*3 + col
			if i < len(cells) {
				marks[col] = deref(cells[i], fmt.Sprint(i))
			}
		}
		fmt.Printf(" %s\n", strings.Join(marks, " | "))
		if row < 2 {
			fmt.Println("---+---+---")
		}
	}
}

func (o *Output) printMoveResult(r response.MoveResult) {
	fmt.Printf("Placed %s at %d (move %d)\n", r.Move.Mark, r.Move.Position, r.Move.Seq)

	switch {
	case r.Classification.IsDraw:
		fmt.Println("Match drawn!")
	case r.Classification.Winner != nil:
		fmt.Printf("%s wins with %v!\n", *r.Classification.Winner, r.Classification.WinningTriple)
	}
	fmt.Println()
	o.printMatch(r.Match)
}

func (o *Output) printMoves(moves []response.Move) {
	if len(moves) == 0 {
		fmt.Println("No moves yet")
		return
	}
	for _, mv := range moves {
		fmt.Printf("%d. %s at %d by %s\n", mv.Seq, mv.Mark, mv.Position, mv.PlayerID)
	}
}

func (o *Output) printLogs(entries []response.LogEntry) {
	for _, e := range entries {
		fmt.Printf("[%s] %s %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.Name)
		if e.MatchID != "" {
			fmt.Printf(" match=%s", e.MatchID)
		}
		if e.UserID != "" {
			fmt.Printf(" user=%s", e.UserID)
		}
		fmt.Println()
	}
}

func (o *Output) printTokenResult(t TokenResult) {
	fmt.Printf("User: %s\n", t.UserID)
	fmt.Printf("Token: %s\n", t.Token)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
