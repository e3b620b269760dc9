// Package bus connects the daemon to a websocket hub. Status lines and chat
// messages are published there in place of a window, and the hub may send
// control commands back.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"miku/internal/history"
)

const writeTimeout = 5 * time.Second

// ErrBadFrame is returned by Read for a frame that is not a Message.
var ErrBadFrame = errors.New("bad bus frame")

// Message is one frame on the hub.
type Message struct {
	From    string    `json:"from"`
	To      string    `json:"to,omitempty"`
	Kind    string    `json:"kind"` // status | user | assistant | command | reply
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

type Bus struct {
	name string

	wmu  sync.Mutex
	conn *websocket.Conn
}

// Dial connects to the hub at wsURL; name is the From of every message sent.
func Dial(ctx context.Context, wsURL, name string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}

	log.Info("Connected to bus", "url", wsURL)
	return &Bus{name: name, conn: conn}, nil
}

func (b *Bus) Read() (*Message, error) {
	_, data, err := b.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}
	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	if m.From == "" {
		m.From = b.name
	}
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.wmu.Lock()
	defer b.wmu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Commands reads until the connection fails or ctx is done and passes every
// "command" addressed to this bus (or to nobody) to handle. The reply is
// written back to the sender.
func (b *Bus) Commands(ctx context.Context, handle func(cmd string) string) error {
	go func() {
		<-ctx.Done()
		b.conn.Close()
	}()

	for {
		m, err := b.Read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrBadFrame) {
				log.Warn("Skipping bad bus frame", "err", err)
				continue
			}
			return err
		}
		if m.Kind != "command" || (m.To != "" && m.To != b.name) {
			continue
		}

		reply := handle(m.Content)
		if err := b.Write(&Message{To: m.From, Kind: "reply", Content: reply}); err != nil {
			log.Warn("Failed to reply on bus", "err", err)
		}
	}
}

// Status publishes a status line.
func (b *Bus) Status(msg string) {
	b.publish("status", msg)
}

// Chat publishes a conversation line.
func (b *Bus) Chat(role history.Role, msg string) {
	b.publish(string(role), msg)
}

func (b *Bus) publish(kind, content string) {
	if err := b.Write(&Message{Kind: kind, Content: content}); err != nil {
		log.Debug("Bus publish failed", "kind", kind, "err", err)
	}
}

func (b *Bus) Close() error {
	b.wmu.Lock()
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	b.wmu.Unlock()
	return b.conn.Close()
}
