package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrMessageDeliveryFailed = errors.New("message delivery failed")
	ErrNoReceiver            = errors.New("no receiver")
	ErrTimeout               = errors.New("timed out waiting for response")
	ErrEndpointExists        = errors.New("endpoint already registered")
	ErrUnknownAction         = errors.New("unknown action")
)

// DefaultTimeout bounds a Send whose context has no deadline.
const DefaultTimeout = 30 * time.Second

// DefaultQueueSize is the inbox capacity of each endpoint.
const DefaultQueueSize = 64

// Handler processes one request. A returned error becomes a failed Response.
type Handler interface {
	HandleMessage(ctx context.Context, req Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) error

func (f HandlerFunc) HandleMessage(ctx context.Context, req Request) error { return f(ctx, req) }

// Sender delivers requests to named endpoints.
type Sender interface {
	Send(ctx context.Context, target string, req Request) (Response, error)
}

type envelope struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Endpoint is one execution context. Its handler runs on the goroutine that
// calls Run, one request at a time, in arrival order.
type Endpoint struct {
	name    string
	bus     *Bus
	handler Handler
	inbox   chan envelope
	closed  chan struct{}
	once    sync.Once
}

// Name returns the endpoint's name.
func (e *Endpoint) Name() string { return e.name }

// Run drains the inbox until ctx is done or the endpoint is closed.
func (e *Endpoint) Run(ctx context.Context) error {
	defer e.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.closed:
			return nil
		case env := <-e.inbox:
			env.reply <- e.dispatch(env)
		}
	}
}

func (e *Endpoint) dispatch(env envelope) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			e.bus.logger.Error("message handler panicked", "endpoint", e.name, "action", env.req.Message.Action, "panic", r)
			resp = Failure(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := env.ctx.Err(); err != nil {
		return Failure(err)
	}
	if err := e.handler.HandleMessage(env.ctx, env.req); err != nil {
		e.bus.logger.Error("handle message", "endpoint", e.name, "action", env.req.Message.Action, "error", err)
		return Failure(err)
	}
	return OK
}

// Close unregisters the endpoint. Pending senders get ErrNoReceiver.
func (e *Endpoint) Close() {
	e.once.Do(func() {
		close(e.closed)
		e.bus.unregister(e)
	})
}

// Bus routes requests between endpoints in one process.
type Bus struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	timeout   time.Duration
	queueSize int
	logger    *slog.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithTimeout sets the deadline applied to sends without one.
func WithTimeout(d time.Duration) BusOption {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithQueueSize sets the inbox capacity of endpoints registered afterwards.
func WithQueueSize(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		endpoints: make(map[string]*Endpoint),
		timeout:   DefaultTimeout,
		queueSize: DefaultQueueSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register creates the endpoint name. Requests queue up until Run is called.
func (b *Bus) Register(name string, h Handler) (*Endpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.endpoints[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrEndpointExists, name)
	}
	e := &Endpoint{
		name:    name,
		bus:     b,
		handler: h,
		inbox:   make(chan envelope, b.queueSize),
		closed:  make(chan struct{}),
	}
	b.endpoints[name] = e
	b.logger.Debug("endpoint registered", "endpoint", name)
	return e, nil
}

func (b *Bus) unregister(e *Endpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.endpoints[e.name] == e {
		delete(b.endpoints, e.name)
	}
}

func (b *Bus) lookup(name string) (*Endpoint, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.endpoints[name]
	return e, ok
}

// Has reports whether an endpoint called name is registered.
func (b *Bus) Has(name string) bool {
	_, ok := b.lookup(name)
	return ok
}

// Send delivers req to target and waits for the response. Delivery problems
// are ErrMessageDeliveryFailed wrapping ErrNoReceiver or ErrTimeout. A
// handler failure is not a delivery problem: it comes back as a Response
// with Success false.
func (b *Bus) Send(ctx context.Context, target string, req Request) (Response, error) {
	call, err := b.enqueue(ctx, target, req)
	if err != nil {
		return Response{}, err
	}
	return call.wait()
}

// pendingCall is a request sitting in an endpoint inbox.
type pendingCall struct {
	target string
	ep     *Endpoint
	env    envelope
	cancel context.CancelFunc
}

// enqueue puts req in the inbox of target. Requests enqueued one after
// another by the same goroutine are handled in that order.
func (b *Bus) enqueue(ctx context.Context, target string, req Request) (*pendingCall, error) {
	e, ok := b.lookup(target)
	if !ok {
		return nil, deliveryErr(target, ErrNoReceiver)
	}

	cancel := context.CancelFunc(func() {})
	if _, has := ctx.Deadline(); !has {
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
	}

	env := envelope{ctx: ctx, req: req, reply: make(chan Response, 1)}
	select {
	case e.inbox <- env:
		return &pendingCall{target: target, ep: e, env: env, cancel: cancel}, nil
	case <-e.closed:
		cancel()
		return nil, deliveryErr(target, ErrNoReceiver)
	case <-ctx.Done():
		cancel()
		return nil, deliveryErr(target, timeoutCause(ctx))
	}
}

// wait blocks until the handler has answered.
func (c *pendingCall) wait() (Response, error) {
	defer c.cancel()
	select {
	case resp := <-c.env.reply:
		return resp, nil
	case <-c.ep.closed:
		return Response{}, deliveryErr(c.target, ErrNoReceiver)
	case <-c.env.ctx.Done():
		return Response{}, deliveryErr(c.target, timeoutCause(c.env.ctx))
	}
}

// Post delivers req without waiting for the handler.
func (b *Bus) Post(ctx context.Context, target string, req Request) error {
	e, ok := b.lookup(target)
	if !ok {
		return deliveryErr(target, ErrNoReceiver)
	}
	env := envelope{ctx: context.WithoutCancel(ctx), req: req, reply: make(chan Response, 1)}
	select {
	case e.inbox <- env:
		return nil
	case <-e.closed:
		return deliveryErr(target, ErrNoReceiver)
	case <-ctx.Done():
		return deliveryErr(target, timeoutCause(ctx))
	}
}

func deliveryErr(target string, cause error) error {
	return fmt.Errorf("%w: %w: %s", ErrMessageDeliveryFailed, cause, target)
}

func timeoutCause(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}

// Mux dispatches requests by action.
type Mux struct {
	handlers map[Action]Handler
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{handlers: make(map[Action]Handler)}
}

// Handle registers h for action, replacing any earlier handler.
func (m *Mux) Handle(action Action, h Handler) {
	m.handlers[action] = h
}

// HandleFunc registers f for action.
func (m *Mux) HandleFunc(action Action, f func(ctx context.Context, req Request) error) {
	m.Handle(action, HandlerFunc(f))
}

// HandleMessage implements Handler.
func (m *Mux) HandleMessage(ctx context.Context, req Request) error {
	h, ok := m.handlers[req.Message.Action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, req.Message.Action)
	}
	return h.HandleMessage(ctx, req)
}
