// Package proctor is the advisory monitoring uplink: a websocket client that
// pushes heartbeats and the preflight snapshot to the proctoring endpoint.
// It observes, it never enforces — any failure here is logged and dropped,
// and the exam proceeds regardless.
package proctor

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Event identifies an uplink message.
type Event string

const (
	EventHeartbeat Event = "heartbeat"
	EventSnapshot  Event = "snapshot"
)

// Message is the uplink wire format.
type Message struct {
	Event     Event  `json:"event"`
	AttemptID int    `json:"attempt_id"`
	SentAt    string `json:"sent_at"`
	// Payload carries the base64 snapshot for EventSnapshot.
	Payload string `json:"payload,omitempty"`
}

// Uplink is one websocket connection for one attempt.
type Uplink struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  zerolog.Logger

	attemptID int
	interval  time.Duration
}

// Dial connects to the monitor endpoint with the student's bearer token.
func Dial(ctx context.Context, wsURL, token string, attemptID int, interval time.Duration, log zerolog.Logger) (*Uplink, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	return &Uplink{
		conn:      conn,
		log:       log.With().Str("component", "proctor").Int("attempt_id", attemptID).Logger(),
		attemptID: attemptID,
		interval:  interval,
	}, nil
}

// Run sends a heartbeat every interval until ctx is done. Send failures end
// the loop; the exam is unaffected.
func (u *Uplink) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.log.Info().Msg("Proctor uplink started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := u.send(Message{Event: EventHeartbeat}); err != nil {
				u.log.Warn().Err(err).Msg("Heartbeat failed, uplink stopping")
				return
			}
		}
	}
}

// SendSnapshot pushes the preflight still. Best effort.
func (u *Uplink) SendSnapshot(frame []byte) {
	msg := Message{
		Event:   EventSnapshot,
		Payload: base64.StdEncoding.EncodeToString(frame),
	}
	if err := u.send(msg); err != nil {
		u.log.Warn().Err(err).Msg("Snapshot send failed")
	}
}

func (u *Uplink) send(msg Message) error {
	msg.AttemptID = u.attemptID
	msg.SentAt = time.Now().UTC().Format(time.RFC3339)

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn.WriteJSON(msg)
}

// Close tears down the connection.
func (u *Uplink) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	_ = u.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return u.conn.Close()
}
