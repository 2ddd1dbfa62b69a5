package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/tidwall/gjson"
)

const (
	pingAfter       = 10 * time.Second
	disconnectAfter = 120 * time.Second
	heartbeatEvery  = 20 * time.Second

	reconnectMin = 1 * time.Second
	reconnectMax = 60 * time.Second

	eventReadLimit = 1 * 1024 * 1024
)

// Event is a change notification pushed by the store.
type Event struct {
	// Op is the change type, currently "album_changed" or "album_deleted".
	Op string
	// AlbumID identifies the affected album.
	AlbumID string
	// Name is the album's display name at the time of the change.
	Name string
}

// EventFeed maintains a websocket connection to the store's change feed.
//
// Architecture: a reader goroutine feeds inboundCh with raw frames; the
// Run loop decodes them, dispatches to the handler, and sends heartbeat
// pings. The feed only ever receives application data, which keeps the
// loop much simpler than a full duplex sync channel. Connection loss
// triggers reconnection with exponential backoff and jitter.
type EventFeed struct {
	url     string
	token   string
	device  string
	logger  *slog.Logger
	handler func(Event)

	conn        *websocket.Conn
	inboundCh   chan inboundFrame
	connCancel  context.CancelFunc
	lastMessage time.Time
}

type inboundFrame struct {
	data []byte
	err  error
}

// NewEventFeed creates a feed for the given websocket URL. The handler is
// invoked from the feed's Run goroutine for every decoded event.
func NewEventFeed(url, token, device string, handler func(Event), logger *slog.Logger) *EventFeed {
	return &EventFeed{
		url:     url,
		token:   token,
		device:  device,
		logger:  logger,
		handler: handler,
	}
}

// Run connects and processes events until ctx is cancelled or a permanent
// error occurs. Transient connection loss is retried with backoff.
func (f *EventFeed) Run(ctx context.Context) error {
	backoff := reconnectMin

	for {
		err := f.connect(ctx)
		if err == nil {
			backoff = reconnectMin
			err = f.readLoop(ctx)
		}

		if f.connCancel != nil {
			f.connCancel()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isPermanentError(err) {
			return fmt.Errorf("permanent event feed error: %w", err)
		}

		f.logger.Warn("event feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)

		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		timer := time.NewTimer(backoff + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = min(backoff*2, reconnectMax)
	}
}

// connect dials the websocket, authenticates, and starts the reader.
func (f *EventFeed) connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, f.url, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + f.token},
			"X-Device":      []string{f.device},
		},
	})
	if err != nil {
		return fmt.Errorf("dialing event feed: %w", err)
	}

	conn.SetReadLimit(eventReadLimit)
	f.conn = conn
	f.lastMessage = time.Now()

	// Read the subscription ack before starting the reader goroutine.
	_, data, err := conn.Read(ctx)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "ack read failed")
		return fmt.Errorf("reading subscribe ack: %w", err)
	}

	if res := gjson.GetBytes(data, "res").Str; res != "ok" {
		conn.Close(websocket.StatusNormalClosure, "auth failed")
		return fmt.Errorf("event feed auth failed: %s", res)
	}

	connCtx, cancel := context.WithCancel(ctx)
	f.connCancel = cancel
	f.startReader(connCtx)

	f.logger.Info("event feed connected")

	return nil
}

// startReader launches a goroutine that reads frames into inboundCh.
// The goroutine captures ch by value so a stale reader from a previous
// connection cannot inject frames into the new channel.
func (f *EventFeed) startReader(connCtx context.Context) {
	ch := make(chan inboundFrame, 16)
	f.inboundCh = ch

	go func() {
		for {
			_, data, err := f.conn.Read(connCtx)
			select {
			case ch <- inboundFrame{data: data, err: err}:
			case <-connCtx.Done():
				return
			}

			if err != nil {
				return
			}
		}
	}()
}

// readLoop dispatches inbound frames and keeps the heartbeat alive.
// Returns on read error or context cancellation.
func (f *EventFeed) readLoop(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case frame := <-f.inboundCh:
			if frame.err != nil {
				return fmt.Errorf("reading event: %w", frame.err)
			}
			f.lastMessage = time.Now()

			f.dispatch(frame.data)

		case <-ticker.C:
			elapsed := time.Since(f.lastMessage)

			if elapsed > disconnectAfter {
				f.conn.Close(websocket.StatusGoingAway, "timeout")
				return fmt.Errorf("heartbeat timeout")
			}

			if elapsed > pingAfter {
				if err := f.conn.Write(ctx, websocket.MessageText, []byte(`{"op":"ping"}`)); err != nil {
					return fmt.Errorf("sending ping: %w", err)
				}
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *EventFeed) dispatch(data []byte) {
	op := gjson.GetBytes(data, "op").Str

	switch op {
	case "pong":
		return

	case "album_changed", "album_deleted":
		ev := Event{
			Op:      op,
			AlbumID: firstString(gjson.ParseBytes(data), "album_id", "id"),
			Name:    firstString(gjson.ParseBytes(data), "name", "album_name"),
		}
		if ev.AlbumID == "" {
			f.logger.Warn("event missing album id", slog.String("op", op))
			return
		}

		f.handler(ev)

	default:
		f.logger.Debug("unexpected event op", slog.String("op", op))
	}
}

// isPermanentError returns true for errors that won't resolve on retry.
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}

	return strings.Contains(err.Error(), "auth failed")
}
