package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/partyroom/state"
)

const usage = `commands:
  create <identity>        create a room (yellow, red, green, blue)
  join <code> [identity]   join or reclaim a seat
  validate <code>          preview a room
  pick <gameId>            choose a game (tic_tac_toe)
  move <0-8>               place a mark
  new                      back to game selection
  end | agree              request / accept ending the game
  leave                    leave the room
  ping
  quit`

// tokens remembers what the server echoed so a later join reclaims the seat.
type tokens struct {
	mu        sync.Mutex
	clientID  string
	seatToken string
}

func (t *tokens) update(msg map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := msg["clientId"].(string); ok && v != "" {
		t.clientID = v
	}
	if v, ok := msg["seatToken"].(string); ok && v != "" {
		t.seatToken = v
	}
}

func (t *tokens) apply(msg map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clientID != "" {
		msg["clientId"] = t.clientID
	}
	if t.seatToken != "" {
		msg["seatToken"] = t.seatToken
	}
}

// send writes one JSON text frame.
func send(c *websocket.Conn, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

// parseCommand turns a command line into a protocol message. It returns nil
// for lines it does not understand.
func parseCommand(line string, t *tokens) map[string]any {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	var msg map[string]any
	switch fields[0] {
	case "create":
		msg = map[string]any{"type": "create_room", "avatar": arg(1)}
	case "join":
		msg = map[string]any{"type": "join_room", "code": arg(1), "avatar": arg(2)}
	case "validate":
		msg = map[string]any{"type": "validate_room", "code": arg(1)}
	case "pick":
		msg = map[string]any{"type": "select_game", "gameId": arg(1)}
	case "move":
		index, err := strconv.Atoi(arg(1))
		if err != nil {
			return nil
		}
		return map[string]any{"type": "move", "move": map[string]int{"index": index}}
	case "new":
		return map[string]any{"type": "new_round"}
	case "end":
		return map[string]any{"type": "end_game_request"}
	case "agree":
		return map[string]any{"type": "end_game_agree"}
	case "leave":
		return map[string]any{"type": "leave_room"}
	case "ping":
		return map[string]any{"type": "ping"}
	default:
		return nil
	}
	t.apply(msg)
	return msg
}

// roundStatus reads the round status out of a room_state frame.
func roundStatus(message []byte) (state.Status, bool) {
	var frame struct {
		Type string `json:"type"`
		Room struct {
			Round *struct {
				Status state.Status `json:"status"`
			} `json:"round"`
		} `json:"room"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		return "", false
	}
	if frame.Type != "room_state" || frame.Room.Round == nil {
		return "", false
	}
	return frame.Room.Round.Status, true
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	t := &tokens{}

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			var msg map[string]any
			if err := json.Unmarshal(message, &msg); err != nil {
				log.Printf("Received invalid frame: %s", message)
				continue
			}
			if msg["type"] == "session" {
				t.update(msg)
			}
			log.Printf("<- RECV %s", message)
			if status, ok := roundStatus(message); ok {
				log.Printf("   round: %s", status)
			}
		}
	}()

	log.Println("Client started.\n" + usage)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	// Write loop
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			closeConn(c, done)
			return
		case line, ok := <-lines:
			if !ok || line == "quit" {
				closeConn(c, done)
				return
			}
			msg := parseCommand(line, t)
			if msg == nil {
				log.Println(usage)
				continue
			}
			if err := send(c, msg); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT %s", msg["type"])
		}
	}
}

func closeConn(c *websocket.Conn, done <-chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("Write close error:", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
