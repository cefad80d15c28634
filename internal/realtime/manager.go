// Package realtime keeps one board subscription connected: it drives the
// connection lifecycle, retries with backoff after failures, decodes inbound
// frames and fans the resulting events out to subscribers.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dilenshah23/collaboration-board/internal/backoff"
	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
	"github.com/dilenshah23/collaboration-board/internal/transport"
)

// ErrClosed is returned by Open after Close. A closed Manager cannot be
// reused; create a new one per subscription.
var ErrClosed = errors.New("realtime: manager closed")

// Subscriber receives decoded events in arrival order. HandleEvent runs on
// the transport's delivery goroutine; it must not block for long and must not
// call Manager.Close synchronously.
type Subscriber interface {
	HandleEvent(ev protocol.Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ev protocol.Event)

func (f SubscriberFunc) HandleEvent(ev protocol.Event) { f(ev) }

// Options configures a Manager. Dialer and Credentials are required.
type Options struct {
	BaseURL     string
	Dialer      transport.Dialer
	Credentials CredentialProvider
	Scheduler   Scheduler      // defaults to TimerScheduler
	Policy      backoff.Policy // zero value means backoff.Default()
	Logger      *zerolog.Logger
}

// Manager owns the connection for exactly one board subscription.
type Manager struct {
	baseURL string
	dialer  transport.Dialer
	creds   CredentialProvider
	sched   Scheduler
	policy  backoff.Policy
	logger  zerolog.Logger

	mu          sync.Mutex
	ctx         context.Context //nolint:containedctx // subscription lifetime
	cancel      context.CancelFunc
	boardID     int64
	state       State
	attempts    int
	gen         uint64
	conn        transport.Conn
	stopRetry   func() bool
	disposed    bool
	err         error
	lastErr     error
	closeCode   int
	closeReason string

	// dispatchMu is held while an event is being delivered so Close can wait
	// for in-flight deliveries to finish.
	dispatchMu sync.Mutex

	subMu    sync.Mutex
	nextID   int
	subs     []subscriber
	watchers []watcher
}

type subscriber struct {
	id int
	s  Subscriber
}

type watcher struct {
	id int
	fn func(Status)
}

// NewManager creates an idle Manager.
func NewManager(opts Options) *Manager {
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Policy == (backoff.Policy{}) {
		opts.Policy = backoff.Default()
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Manager{
		baseURL: opts.BaseURL,
		dialer:  opts.Dialer,
		creds:   opts.Credentials,
		sched:   opts.Scheduler,
		policy:  opts.Policy,
		logger:  logger.With().Str("component", "realtime").Logger(),
		state:   StateIdle,
	}
}

// Open subscribes to boardID. It returns an error wrapping
// domain.ErrMissingCredential when no token is available, in which case no
// connection is attempted. Transport failures are not returned; they drive
// the reconnect loop and are visible through Status. ctx bounds the lifetime
// of the whole subscription, including retries: once it is done the
// connection is closed and nothing is rescheduled. A later Open with a live
// ctx starts over.
func (m *Manager) Open(ctx context.Context, boardID int64) error {
	if boardID <= 0 {
		return fmt.Errorf("realtime.Manager.Open: invalid board id %d", boardID)
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return fmt.Errorf("realtime.Manager.Open: %w", ErrClosed)
	}
	if m.state == StateConnecting || m.state == StateOpen {
		current := m.boardID
		m.mu.Unlock()
		if current == boardID {
			return nil
		}
		return fmt.Errorf("realtime.Manager.Open: already subscribed to board %d", current)
	}
	if m.ctx == nil || m.ctx.Err() != nil {
		if m.cancel != nil {
			m.cancel()
		}
		m.ctx, m.cancel = context.WithCancel(ctx)
	}
	m.boardID = boardID
	m.cancelRetryLocked()
	m.mu.Unlock()

	return m.connect()
}

// Reconnect re-opens the current board after the subscription has closed,
// for example once reconnects are exhausted. A pending retry is replaced.
// The attempt counter is kept; it resets when the connection opens.
func (m *Manager) Reconnect() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return fmt.Errorf("realtime.Manager.Reconnect: %w", ErrClosed)
	}
	if m.ctx == nil {
		m.mu.Unlock()
		return errors.New("realtime.Manager.Reconnect: never opened")
	}
	if err := m.ctx.Err(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("realtime.Manager.Reconnect: subscription ended: %w", err)
	}
	if m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return nil
	}
	m.cancelRetryLocked()
	m.mu.Unlock()

	return m.connect()
}

// Close tears the subscription down: it cancels a pending retry, closes the
// live connection and moves to StateClosed. It is safe to call repeatedly and
// on a Manager that was never opened.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return nil
	}
	m.disposed = true
	m.gen++
	m.cancelRetryLocked()
	conn := m.conn
	m.conn = nil
	if conn != nil {
		m.state = StateClosing
	}
	cancel := m.cancel
	boardID := m.boardID
	m.mu.Unlock()

	var err error
	if conn != nil {
		if closeErr := conn.Close(); closeErr != nil {
			err = fmt.Errorf("realtime.Manager.Close: %w", closeErr)
		}
	}
	if cancel != nil {
		cancel()
	}

	m.dispatchMu.Lock()
	m.dispatchMu.Unlock() //nolint:staticcheck // barrier for in-flight deliveries

	m.mu.Lock()
	m.state = StateClosed
	m.mu.Unlock()

	m.logger.Info().Int64("board_id", boardID).Msg("subscription closed")
	m.notifyStatus()

	return err
}

// Send relays action when the connection is open. Otherwise it logs a
// warning and returns domain.ErrNotConnected; the action is not queued.
func (m *Manager) Send(ctx context.Context, action protocol.Action) error {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen && conn != nil
	boardID := m.boardID
	m.mu.Unlock()

	if !open {
		m.logger.Warn().
			Int64("board_id", boardID).
			Str("action", string(action.Kind)).
			Msg("not connected, dropping action")
		return fmt.Errorf("realtime.Manager.Send: %w", domain.ErrNotConnected)
	}

	data, err := protocol.Encode(action)
	if err != nil {
		return fmt.Errorf("realtime.Manager.Send: %w", err)
	}
	if err := conn.Send(ctx, data); err != nil {
		m.logger.Warn().Err(err).Int64("board_id", boardID).Str("action", string(action.Kind)).Msg("send failed")
		return fmt.Errorf("realtime.Manager.Send: %w", err)
	}

	m.logger.Debug().Int64("board_id", boardID).Str("action", string(action.Kind)).Msg("action sent")
	return nil
}

// Subscribe registers s for every decoded event. The returned func removes it.
func (m *Manager) Subscribe(s Subscriber) (unsubscribe func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, s: s})

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, sub := range m.subs {
			if sub.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// WatchStatus registers fn for status changes. The returned func removes it.
func (m *Manager) WatchStatus(fn func(Status)) (unwatch func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextID++
	id := m.nextID
	m.watchers = append(m.watchers, watcher{id: id, fn: fn})

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, w := range m.watchers {
			if w.id == id {
				m.watchers = append(m.watchers[:i:i], m.watchers[i+1:]...)
				return
			}
		}
	}
}

// Status returns the current lifecycle view.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	return Status{
		BoardID:     m.boardID,
		State:       m.state,
		Attempts:    m.attempts,
		Err:         m.err,
		LastError:   m.lastErr,
		CloseCode:   m.closeCode,
		CloseReason: m.closeReason,
	}
}

// connect resolves the credential and starts one connection attempt.
func (m *Manager) connect() error {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	token, err := m.creds.AccessToken(ctx)
	if err == nil && token == "" {
		err = domain.ErrMissingCredential
	}
	if err != nil {
		if !errors.Is(err, domain.ErrMissingCredential) {
			err = fmt.Errorf("%w: %w", domain.ErrMissingCredential, err)
		}
		m.mu.Lock()
		if m.disposed {
			m.mu.Unlock()
			return fmt.Errorf("realtime.Manager.Open: %w", ErrClosed)
		}
		m.err = err
		boardID := m.boardID
		m.mu.Unlock()

		m.logger.Error().Err(err).Int64("board_id", boardID).Msg("no credential, not connecting")
		m.notifyStatus()
		return fmt.Errorf("realtime.Manager.Open: %w", err)
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return fmt.Errorf("realtime.Manager.Open: %w", ErrClosed)
	}
	endpoint, err := transport.BoardEndpoint(m.baseURL, m.boardID, token)
	if err != nil {
		m.err = err
		m.mu.Unlock()
		m.notifyStatus()
		return fmt.Errorf("realtime.Manager.Open: %w", err)
	}
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.closeCode, m.closeReason = 0, ""
	boardID, attempt := m.boardID, m.attempts
	m.mu.Unlock()

	m.logger.Info().Int64("board_id", boardID).Int("attempt", attempt).Msg("connecting")
	m.notifyStatus()

	h := &connHandler{m: m, gen: gen}
	conn, err := m.dialer.Dial(ctx, endpoint, h)
	if err != nil {
		h.OnError(fmt.Errorf("realtime: dial: %w: %w", domain.ErrTransport, err))
		h.OnClose(transport.CloseAbnormal, "")
		return nil
	}

	m.mu.Lock()
	if m.gen == gen && (m.state == StateConnecting || m.state == StateOpen) {
		m.conn = conn
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	// Superseded by Close or already closed by the transport.
	_ = conn.Close()
	return nil
}

func (m *Manager) handleOpen(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateOpen
	m.attempts = 0
	m.err = nil
	m.lastErr = nil
	boardID := m.boardID
	m.mu.Unlock()

	m.logger.Info().Int64("board_id", boardID).Msg("connected")
	m.notifyStatus()
}

func (m *Manager) handleMessage(gen uint64, data []byte) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.mu.Lock()
	live := gen == m.gen && m.state == StateOpen
	boardID := m.boardID
	m.mu.Unlock()
	if !live {
		return
	}

	ev, err := protocol.Decode(data)
	if err != nil {
		m.logger.Warn().Err(err).Int64("board_id", boardID).Int("bytes", len(data)).Msg("dropping malformed frame")
		return
	}
	if unknown, ok := ev.(protocol.UnknownEvent); ok {
		m.logger.Debug().Int64("board_id", boardID).Str("event", unknown.Tag).Msg("unknown event type")
	}

	m.subMu.Lock()
	subs := make([]Subscriber, len(m.subs))
	for i, s := range m.subs {
		subs[i] = s.s
	}
	m.subMu.Unlock()

	for _, s := range subs {
		s.HandleEvent(ev)
	}
}

func (m *Manager) handleError(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	if !errors.Is(err, domain.ErrTransport) {
		err = fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	m.lastErr = err
	boardID := m.boardID
	m.mu.Unlock()

	m.logger.Warn().Err(err).Int64("board_id", boardID).Msg("transport error")
	m.notifyStatus()
}

func (m *Manager) handleClose(gen uint64, code int, reason string) {
	m.mu.Lock()
	if gen != m.gen || m.state == StateClosed || m.disposed {
		m.mu.Unlock()
		return
	}
	m.state = StateClosed
	m.conn = nil
	m.closeCode, m.closeReason = code, reason
	boardID, attempt := m.boardID, m.attempts

	if m.ctxDoneLocked() {
		m.mu.Unlock()

		m.logger.Info().Int64("board_id", boardID).Int("code", code).Msg("subscription context done, not reconnecting")
		m.notifyStatus()
		return
	}

	if m.policy.Exhausted(attempt) {
		m.err = fmt.Errorf("realtime: board %d: %d attempts: %w", boardID, attempt, domain.ErrReconnectExhausted)
		m.mu.Unlock()

		m.logger.Error().Int64("board_id", boardID).Int("attempt", attempt).Int("code", code).Msg("reconnect attempts exhausted")
		m.notifyStatus()
		return
	}

	delay := m.policy.Delay(attempt)
	m.stopRetry = m.sched.AfterFunc(delay, func() { m.retry(gen) })
	m.mu.Unlock()

	m.logger.Warn().
		Int64("board_id", boardID).
		Int("code", code).
		Str("reason", reason).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("connection closed, scheduling reconnect")
	m.notifyStatus()
}

func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	if m.disposed || gen != m.gen || m.state != StateClosed {
		m.mu.Unlock()
		return
	}
	m.stopRetry = nil
	if m.ctxDoneLocked() {
		m.mu.Unlock()
		return
	}
	m.attempts++
	m.mu.Unlock()

	if err := m.connect(); err != nil {
		m.logger.Warn().Err(err).Msg("reconnect aborted")
	}
}

func (m *Manager) ctxDoneLocked() bool {
	return m.ctx != nil && m.ctx.Err() != nil
}

func (m *Manager) cancelRetryLocked() {
	if m.stopRetry != nil {
		m.stopRetry()
		m.stopRetry = nil
	}
}

func (m *Manager) notifyStatus() {
	st := m.Status()

	m.subMu.Lock()
	fns := make([]func(Status), len(m.watchers))
	for i, w := range m.watchers {
		fns[i] = w.fn
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// connHandler binds transport signals to the connection generation that
// produced them, so signals from a replaced or closed connection are ignored.
type connHandler struct {
	m   *Manager
	gen uint64
}

func (h *connHandler) OnOpen()                         { h.m.handleOpen(h.gen) }
func (h *connHandler) OnMessage(data []byte)           { h.m.handleMessage(h.gen, data) }
func (h *connHandler) OnError(err error)               { h.m.handleError(h.gen, err) }
func (h *connHandler) OnClose(code int, reason string) { h.m.handleClose(h.gen, code, reason) }
