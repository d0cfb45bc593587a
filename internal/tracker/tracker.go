package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/angelmondragon/sliceline-client/internal/backend"
	"github.com/angelmondragon/sliceline-client/pkg/config"
	"github.com/angelmondragon/sliceline-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
	"github.com/angelmondragon/sliceline-client/pkg/logger"
	"github.com/angelmondragon/sliceline-client/pkg/metrics"
)

// statusEvent is one push message: the channel delivers status changes for any
// order owned by the authenticated subject.
type statusEvent struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update is what readers observe: the stream state plus, when an order
// advanced, its new displayed status.
type Update struct {
	State   enums.StreamState
	OrderID string
	Status  enums.OrderStatus
	Err     error
}

// TokenProvider supplies the bearer token used to authenticate the channel.
type TokenProvider interface {
	BearerToken(ctx context.Context) (string, error)
}

// OrderFetcher reads one order's current state; the polling fallback runs on it.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*backend.Order, error)
}

// Params wires a Tracker.
type Params struct {
	Stream  config.StreamConfig
	Dialer  Dialer
	Orders  OrderFetcher
	Tokens  TokenProvider
	Logger  *logger.Logger
	Metrics *metrics.ClientMetrics
	// TargetOrderID, when set, self-terminates the tracker once that order
	// reaches a terminal status. Required in polling mode, where the status
	// endpoint is per-order.
	TargetOrderID string
}

// Tracker maintains a monotonically advancing view of order statuses over a
// push channel with bounded fixed-delay reconnects, or over periodic polling
// when no channel endpoint is configured. Connection state and order state are
// orthogonal; reconnects never rewind a displayed status.
type Tracker struct {
	cfg      config.StreamConfig
	dialer   Dialer
	orders   OrderFetcher
	tokens   TokenProvider
	logg     *logger.Logger
	metrics  *metrics.ClientMetrics
	target   string
	progress *progress

	updates chan Update
	retryCh chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	conn    Conn
	cancel  context.CancelFunc
	started bool

	stopOnce sync.Once
}

var errTerminal = errors.New("terminal status reached")

func New(p Params) (*Tracker, error) {
	cfg := p.Stream
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}

	if cfg.URL == "" {
		if p.Orders == nil {
			return nil, fmt.Errorf("order fetcher required for polling mode")
		}
		if p.TargetOrderID == "" {
			return nil, fmt.Errorf("target order id required for polling mode")
		}
	} else {
		if p.Tokens == nil {
			return nil, fmt.Errorf("token provider required for the push channel")
		}
		if p.Dialer == nil {
			p.Dialer = WSDialer{}
		}
	}

	return &Tracker{
		cfg:      cfg,
		dialer:   p.Dialer,
		orders:   p.Orders,
		tokens:   p.Tokens,
		logg:     p.Logger,
		metrics:  p.Metrics,
		target:   p.TargetOrderID,
		progress: newProgress(),
		updates:  make(chan Update, 32),
		retryCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Updates returns the stream of state changes. Slow readers lose older
// updates, never the newest one.
func (t *Tracker) Updates() <-chan Update {
	return t.updates
}

// Status returns the displayed status for an order, if one has been observed.
func (t *Tracker) Status(orderID string) (enums.OrderStatus, bool) {
	return t.progress.Current(orderID)
}

// Start launches the tracking loop. Safe to call once.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(runCtx)
}

// Retry resets the attempt counter and forces an immediate reconnect or poll.
func (t *Tracker) Retry() {
	select {
	case t.retryCh <- struct{}{}:
	default:
	}
}

// Stop tears the tracker down: the open channel is closed with a normal close
// code so the server does not treat it as a failure, timers stop, and Stop
// returns only after the run loop has exited.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		started := t.started
		if t.cancel != nil {
			t.cancel()
		}
		conn := t.conn
		t.conn = nil
		t.mu.Unlock()

		if conn != nil {
			_ = conn.CloseNormal("client teardown")
		}
		if started {
			<-t.done
		}
	})
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)

	if t.cfg.URL == "" {
		t.runPolling(ctx)
		return
	}
	t.runStream(ctx)
}

func (t *Tracker) runStream(ctx context.Context) {
	attempts := 0
	for {
		if ctx.Err() != nil {
			t.emit(Update{State: enums.StreamStateClosed})
			return
		}

		if attempts == 0 {
			t.emit(Update{State: enums.StreamStateConnecting})
		} else {
			t.emit(Update{State: enums.StreamStateReconnecting})
		}

		token, err := t.tokens.BearerToken(ctx)
		if err != nil {
			// Expired credentials are fatal for the attempt: surfaced at
			// once, no retry slot consumed.
			if !t.awaitRetry(ctx, err) {
				t.emit(Update{State: enums.StreamStateClosed})
				return
			}
			attempts = 0
			continue
		}

		conn, err := t.dialer.DialContext(ctx, t.streamURL(token))
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
				if !t.awaitRetry(ctx, err) {
					t.emit(Update{State: enums.StreamStateClosed})
					return
				}
				attempts = 0
				continue
			}
			if !t.handleTransient(ctx, &attempts, err) {
				t.emit(Update{State: enums.StreamStateClosed})
				return
			}
			continue
		}

		t.setConn(conn)
		t.emit(Update{State: enums.StreamStateLive})

		readErr := t.readLoop(ctx, conn, &attempts)
		t.setConn(nil)

		switch {
		case ctx.Err() != nil:
			// Stop already closed the channel cleanly.
			t.emit(Update{State: enums.StreamStateClosed})
			return
		case errors.Is(readErr, errTerminal):
			_ = conn.CloseNormal("order delivered")
			t.emit(Update{State: enums.StreamStateClosed})
			return
		case isNormalClosure(readErr):
			_ = conn.Close()
			t.emit(Update{State: enums.StreamStateClosed})
			return
		default:
			_ = conn.Close()
			if !t.handleTransient(ctx, &attempts, readErr) {
				t.emit(Update{State: enums.StreamStateClosed})
				return
			}
		}
	}
}

// readLoop consumes events until the channel errors or the target order goes
// terminal. Receiving any event proves the channel healthy, which resets the
// consecutive-failure counter.
func (t *Tracker) readLoop(ctx context.Context, conn Conn, attempts *int) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		*attempts = 0

		var evt statusEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			if t.logg != nil {
				t.logg.Warn(ctx, "discarding malformed status event")
			}
			continue
		}
		status, err := enums.ParseOrderStatus(evt.Status)
		if err != nil {
			if t.logg != nil {
				t.logg.Warn(ctx, fmt.Sprintf("discarding status event with unknown status %q", evt.Status))
			}
			continue
		}

		display, advanced := t.progress.Advance(evt.OrderID, status)
		if !advanced {
			if status.Rank() < display.Rank() {
				t.metrics.IncStaleEventDropped()
				if t.logg != nil {
					t.logg.Debug(ctx, fmt.Sprintf("dropping stale %s event behind displayed %s", status, display))
				}
			}
			continue
		}

		t.emit(Update{State: enums.StreamStateLive, OrderID: evt.OrderID, Status: display})

		if display.IsTerminal() && t.target != "" && evt.OrderID == t.target {
			return errTerminal
		}
	}
}

func (t *Tracker) runPolling(ctx context.Context) {
	t.emit(Update{State: enums.StreamStatePolling})

	attempts := 0
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// Poll up front so the first status does not wait a full interval.
		order, err := t.orders.GetOrder(ctx, t.target)
		switch {
		case ctx.Err() != nil:
			t.emit(Update{State: enums.StreamStateClosed})
			return
		case err != nil && pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized):
			if !t.awaitRetry(ctx, err) {
				t.emit(Update{State: enums.StreamStateClosed})
				return
			}
			attempts = 0
			continue
		case err != nil:
			attempts++
			if attempts >= t.cfg.MaxReconnectAttempts {
				exhausted := pkgerrors.Wrap(pkgerrors.CodeTransport, err, "poll attempts exhausted")
				if !t.awaitRetry(ctx, exhausted) {
					t.emit(Update{State: enums.StreamStateClosed})
					return
				}
				attempts = 0
				continue
			}
		default:
			attempts = 0
			if display, advanced := t.progress.Advance(t.target, order.Status); advanced {
				t.emit(Update{State: enums.StreamStatePolling, OrderID: t.target, Status: display})
				if display.IsTerminal() {
					t.emit(Update{State: enums.StreamStateClosed})
					return
				}
			}
		}

		select {
		case <-ctx.Done():
			t.emit(Update{State: enums.StreamStateClosed})
			return
		case <-t.retryCh:
			attempts = 0
		case <-ticker.C:
		}
	}
}

// handleTransient schedules the next attempt after an unclean failure.
// Consecutive failures beyond the ceiling park the tracker in the errored
// state until a manual retry. Returns false when the run loop must exit.
func (t *Tracker) handleTransient(ctx context.Context, attempts *int, cause error) bool {
	*attempts++
	if *attempts >= t.cfg.MaxReconnectAttempts {
		exhausted := pkgerrors.Wrap(pkgerrors.CodeTransport, cause, "reconnect attempts exhausted")
		if !t.awaitRetry(ctx, exhausted) {
			return false
		}
		*attempts = 0
		return true
	}

	t.metrics.IncStreamReconnect()
	if t.logg != nil {
		t.logg.Warn(ctx, fmt.Sprintf("order stream dropped, reconnecting (attempt %d/%d)", *attempts, t.cfg.MaxReconnectAttempts))
	}
	select {
	case <-ctx.Done():
		return false
	case <-t.retryCh:
		*attempts = 0
		return true
	case <-time.After(t.cfg.ReconnectDelay):
		return true
	}
}

// awaitRetry surfaces a persistent error and parks until a manual retry.
func (t *Tracker) awaitRetry(ctx context.Context, cause error) bool {
	if t.logg != nil {
		t.logg.Error(ctx, "order stream entered persistent error state", cause)
	}
	t.emit(Update{State: enums.StreamStateErrored, Err: cause})
	select {
	case <-ctx.Done():
		return false
	case <-t.retryCh:
		return true
	}
}

func (t *Tracker) streamURL(token string) string {
	return t.cfg.URL + "?token=" + url.QueryEscape(token)
}

func (t *Tracker) setConn(conn Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
}

func (t *Tracker) emit(update Update) {
	for {
		select {
		case t.updates <- update:
		default:
			select {
			case <-t.updates:
			default:
			}
			continue
		}
		break
	}
}
