package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/obsmetrics"
)

// wsConn is the reconnect-aware WebSocket link shared by every concrete
// adapter. Each adapter supplies a Decoder that turns raw frames into
// normalized candles/tickers on sink.
type wsConn struct {
	exchangeName string
	url          string
	idleTimeout  time.Duration

	mu     sync.RWMutex
	conn   *websocket.Conn
	fsm    *fsm
	closeCh chan struct{}
	rng    *rand.Rand
	metrics *obsmetrics.Registry
}

func newWSConn(exchangeName, wsURL string, idleTimeout time.Duration, metrics *obsmetrics.Registry) *wsConn {
	return &wsConn{
		exchangeName: exchangeName,
		url:          wsURL,
		idleTimeout:  idleTimeout,
		fsm:          newFSM(),
		closeCh:      make(chan struct{}),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		metrics:      metrics,
	}
}

func (w *wsConn) State() ConnectionState { return w.fsm.Get() }

// Decoder is supplied by each exchange-specific adapter to translate one
// text frame into subscribe/unsubscribe/candle/ticker callbacks.
type Decoder interface {
	// SubscribeFrames returns the frames to send right after connect.
	SubscribeFrames(symbols []string) ([][]byte, error)
	// Decode handles one inbound frame.
	Decode(data []byte) error
}

// run maintains the connection for as long as ctx is live, reconnecting
// with exponential backoff and jitter on any read/write failure. It
// blocks.
func (w *wsConn) run(ctx context.Context, symbols []string, dec Decoder) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := w.connectOnce(ctx, symbols, dec); err != nil {
			log.Warn().Err(err).Str("exchange", w.exchangeName).Int("attempt", attempt).Msg("websocket disconnected")
			if w.metrics != nil {
				w.metrics.WSReconnectsTotal.WithLabelValues(w.exchangeName).Inc()
			}
			delay := reconnectDelay(attempt, w.rng)
			attempt++
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0
	}
}

func (w *wsConn) connectOnce(ctx context.Context, symbols []string, dec Decoder) error {
	_ = w.fsm.Transition(StateConnecting)

	u, err := url.Parse(w.url)
	if err != nil {
		return fmt.Errorf("invalid websocket url: %w", err)
	}

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 15 * time.Second

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		_ = w.fsm.Transition(StateFailed)
		return fmt.Errorf("dial: %w", err)
	}
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	_ = w.fsm.Transition(StateConnected)

	frames, err := dec.SubscribeFrames(symbols)
	if err != nil {
		return fmt.Errorf("build subscribe frames: %w", err)
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, f); err != nil {
			return fmt.Errorf("send subscribe: %w", err)
		}
	}

	reconnect := make(chan struct{}, 1)
	pingDone := make(chan struct{})
	go w.pingLoop(ctx, conn, reconnect, pingDone)
	defer close(pingDone)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return ctx.Err()
		case <-reconnect:
			_ = conn.Close()
			_ = w.fsm.Transition(StateReconnecting)
			return fmt.Errorf("ping failed")
		default:
			conn.SetReadDeadline(time.Now().Add(w.idleTimeout))
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				_ = w.fsm.Transition(StateReconnecting)
				return fmt.Errorf("read: %w", err)
			}
			if msgType != websocket.TextMessage {
				continue
			}
			if err := dec.Decode(data); err != nil {
				log.Error().Err(err).Str("exchange", w.exchangeName).Msg("failed to decode websocket frame")
			}
		}
	}
}

func (w *wsConn) pingLoop(ctx context.Context, conn *websocket.Conn, reconnect chan<- struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(w.idleTimeout / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			w.mu.RLock()
			c := w.conn
			w.mu.RUnlock()
			if c != conn {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				select {
				case reconnect <- struct{}{}:
				default:
				}
				return
			}
		}
	}
}
