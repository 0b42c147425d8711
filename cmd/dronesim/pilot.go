package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var pilotServerURL string

const pilotHelp = `Input format: speed,altitude,movement (e.g. '2,0,fwd')
- speed: integer 0-5
- altitude: positive or negative integer
- movement: 'fwd' or 'rev'
Commands: 'help', 'exit'`

var pilotCmd = &cobra.Command{
	Use:   "pilot",
	Short: "Fly a drone on a running simulator server",
	Long:  "pilot connects to a simulator server and turns console input into flight commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, _, err := websocket.DefaultDialer.Dial(pilotServerURL, nil)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", pilotServerURL, err)
		}
		defer ws.Close()

		// The server pushes messages on its own schedule (inactivity
		// notices, the crash report); a dedicated reader prints them all.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_, data, err := ws.ReadMessage()
				if err != nil {
					fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
					return
				}
				var pretty bytes.Buffer
				if json.Indent(&pretty, data, "", "  ") == nil {
					fmt.Println(pretty.String())
				} else {
					fmt.Println(string(data))
				}
			}
		}()

		fmt.Println(pilotHelp)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case <-done:
				return nil
			default:
			}

			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
				continue
			case line == "exit":
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return nil
			case line == "help":
				fmt.Println(pilotHelp)
				continue
			}

			payload, err := parsePilotCommand(line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				<-done
				return nil
			}
		}
		return scanner.Err()
	},
}

// parsePilotCommand turns "speed,altitude,movement" console input into the
// wire command. Validation happens server-side; this only checks the shape.
func parsePilotCommand(line string) ([]byte, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid command format, use: speed,altitude,movement (e.g. '2,0,fwd')")
	}
	speed, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("speed must be an integer: %q", parts[0])
	}
	altitude, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("altitude must be an integer: %q", parts[1])
	}
	return json.Marshal(map[string]any{
		"speed":    speed,
		"altitude": altitude,
		"movement": strings.TrimSpace(parts[2]),
	})
}

func init() {
	pilotCmd.Flags().StringVar(&pilotServerURL, "server", "ws://localhost:8765/ws", "Simulator server websocket URL")
}
