package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/tictactoe-go/internal/realtime"
	"github.com/mcoot/tictactoe-go/internal/realtime/wire"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput, forwardStdin bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Open a WebSocket session and stream notifications",
		Long: `Connect to the server's WebSocket endpoint and stream messages in real-time.
While connected you count as online and can be invited.

Messages include:
  - connected: Session acknowledged
  - user:online, user:offline: Presence changed
  - invitation:received, invitation:accepted, invitation:rejected
  - match:started, move:made, match:finished, match:abandoned
  - result, error, pong: Replies to commands sent with --stdin

With --stdin each input line is sent as a command, for example:
  {"type":"move","request_id":"1","match_id":"...","position":4}

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(jsonOutput, forwardStdin)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output messages as JSON lines")
	cmd.Flags().BoolVar(&forwardStdin, "stdin", false, "Send each stdin line as a command")

	return cmd
}

// inbound is an envelope with its payload left undecoded
type inbound struct {
	Type      string              `json:"type"`
	RequestID string              `json:"request_id,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	Data      json.RawMessage     `json:"data,omitempty"`
	Error     *realtime.ErrorBody `json:"error,omitempty"`
}

func streamEvents(jsonOutput, forwardStdin bool) error {
	if cfg.Token == "" {
		return errors.New("a token is required, see 'tttctl token issue'")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{wire.SubprotocolJSON},
	}

	conn, resp, err := dialer.DialContext(ctx, client.WebSocketURL(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// WriteControl may run alongside the stdin forwarder's writes
	go func() {
		<-ctx.Done()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}()

	if forwardStdin {
		go forwardCommands(conn)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				switch closeErr.Code {
				case websocket.CloseNormalClosure, websocket.CloseGoingAway:
					if !jsonOutput {
						fmt.Println("Disconnected")
					}
					return nil
				}
				return fmt.Errorf("connection closed: %d %s", closeErr.Code, closeErr.Text)
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to parse message: %w", err)
		}
		printMessage(msg, data, jsonOutput)
	}
}

func forwardCommands(conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var cmd realtime.Command
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			fmt.Fprintf(os.Stderr, "invalid command: %s\n", err)
			continue
		}
		data, err := wire.JSON.Marshal(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid command: %s\n", err)
			continue
		}

		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func printMessage(msg inbound, raw []byte, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(string(raw))
		return
	}

	timestamp := msg.Timestamp.Local().Format("2006-01-02 15:04:05")
	if msg.Error != nil {
		fmt.Printf("[%s] %s: %s (%s)\n", timestamp, msg.Type, msg.Error.Message, msg.Error.Code)
		return
	}

	// Truncate data if it's too long for display
	displayData := string(msg.Data)
	if len(displayData) > 160 {
		displayData = displayData[:160] + "..."
	}
	if msg.RequestID != "" {
		fmt.Printf("[%s] %s #%s: %s\n", timestamp, msg.Type, msg.RequestID, displayData)
		return
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, msg.Type, displayData)
}
