package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

const (
	frameRequest  = "request"
	frameResponse = "response"
)

// frame is one websocket message between a Bridge and a Client.
type frame struct {
	ID       uint64    `json:"id"`
	Kind     string    `json:"kind"`
	Target   string    `json:"target,omitempty"`
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// peer multiplexes calls over one websocket connection.
type peer struct {
	conn   *websocket.Conn
	logger *slog.Logger

	wmu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Response

	done chan struct{}
	once sync.Once
}

func newPeer(conn *websocket.Conn, logger *slog.Logger) *peer {
	return &peer{
		conn:    conn,
		logger:  logger,
		pending: make(map[uint64]chan Response),
		done:    make(chan struct{}),
	}
}

func (p *peer) write(f frame) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteJSON(f)
}

func (p *peer) call(ctx context.Context, target string, req Request) (Response, error) {
	ch := make(chan Response, 1)
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.pending[id] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	if err := p.write(frame{ID: id, Kind: frameRequest, Target: target, Request: &req}); err != nil {
		return Response{}, deliveryErr(target, fmt.Errorf("%w: %w", ErrNoReceiver, err))
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-p.done:
		return Response{}, deliveryErr(target, ErrNoReceiver)
	case <-ctx.Done():
		return Response{}, deliveryErr(target, timeoutCause(ctx))
	}
}

func (p *peer) reply(id uint64, resp Response) {
	if err := p.write(frame{ID: id, Kind: frameResponse, Response: &resp}); err != nil {
		p.logger.Warn("write response", "id", id, "error", err)
	}
}

// readLoop runs until the connection fails. Request frames go to onRequest,
// response frames complete pending calls.
func (p *peer) readLoop(onRequest func(frame)) error {
	defer p.shutdown()
	for {
		var f frame
		if err := p.conn.ReadJSON(&f); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		switch f.Kind {
		case frameResponse:
			if f.Response == nil {
				continue
			}
			p.mu.Lock()
			ch, ok := p.pending[f.ID]
			p.mu.Unlock()
			if ok {
				ch <- *f.Response
			}
		case frameRequest:
			if f.Request == nil {
				p.reply(f.ID, Failure(errors.New("empty request")))
				continue
			}
			onRequest(f)
		default:
			p.logger.Warn("unknown frame kind", "kind", f.Kind)
		}
	}
}

func (p *peer) shutdown() {
	p.once.Do(func() { close(p.done) })
}

func (p *peer) close() error {
	p.wmu.Lock()
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	p.wmu.Unlock()
	return p.conn.Close()
}

// Bridge exposes a Bus over websocket. Each connection registers one
// endpoint, named by the "name" query parameter, and may send requests to
// any other endpoint on the bus. Requests from one connection reach their
// target in the order they were written.
type Bridge struct {
	bus      *Bus
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewBridge creates a bridge for bus.
func NewBridge(bus *Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP upgrades the connection and serves it until it closes.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing endpoint name", http.StatusBadRequest)
		return
	}
	if b.bus.Has(name) {
		http.Error(w, "endpoint already connected", http.StatusConflict)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade", "endpoint", name, "error", err)
		return
	}
	p := newPeer(conn, b.logger)
	defer p.close()

	ep, err := b.bus.Register(name, HandlerFunc(func(ctx context.Context, req Request) error {
		resp, err := p.call(ctx, name, req)
		if err != nil {
			return err
		}
		if !resp.Success {
			return errors.New(resp.Error)
		}
		return nil
	}))
	if err != nil {
		b.logger.Warn("register remote endpoint", "endpoint", name, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ep.Run(ctx)
	defer ep.Close()

	b.logger.Info("remote endpoint connected", "endpoint", name, "remote", r.RemoteAddr)
	err = p.readLoop(func(f frame) {
		req := *f.Request
		req.From.Context = name
		// Enqueued on the read goroutine so the target sees requests in the
		// order they arrived. Only the wait for the answer runs concurrently.
		call, err := b.bus.enqueue(ctx, f.Target, req)
		if err != nil {
			p.reply(f.ID, Failure(err))
			return
		}
		go func() {
			resp, err := call.wait()
			if err != nil {
				resp = Failure(err)
			}
			p.reply(f.ID, resp)
		}()
	})
	if err != nil {
		b.logger.Warn("remote endpoint read", "endpoint", name, "error", err)
	}
	b.logger.Info("remote endpoint disconnected", "endpoint", name)
}

// ListenAndServe serves the bridge on addr at path until ctx is done.
func (b *Bridge) ListenAndServe(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, b)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	b.logger.Info("bridge listening", "addr", addr, "path", path)

	select {
	case err := <-errc:
		return fmt.Errorf("bridge: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("bridge shutdown: %w", err)
		}
		return nil
	}
}

// Client is a remote execution context connected to a Bridge. Incoming
// requests are handled one at a time, in arrival order.
type Client struct {
	name    string
	peer    *peer
	handler Handler
	inbox   chan frame
	logger  *slog.Logger
}

// Dial connects to the bridge at rawURL as endpoint name. h handles requests
// sent to that endpoint and may be nil for send-only clients.
func Dial(ctx context.Context, rawURL, name string, h Handler, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse bridge url: %w", err)
	}
	q := u.Query()
	q.Set("name", name)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrMessageDeliveryFailed, u.Redacted(), err)
	}

	c := &Client{
		name:    name,
		peer:    newPeer(conn, logger),
		handler: h,
		inbox:   make(chan frame, DefaultQueueSize),
		logger:  logger,
	}
	go c.work()
	go func() {
		if err := c.peer.readLoop(c.enqueue); err != nil {
			logger.Warn("bridge connection lost", "endpoint", name, "error", err)
		}
	}()
	return c, nil
}

func (c *Client) enqueue(f frame) {
	select {
	case c.inbox <- f:
	case <-c.peer.done:
	}
}

func (c *Client) work() {
	for {
		select {
		case <-c.peer.done:
			return
		case f := <-c.inbox:
			c.peer.reply(f.ID, c.handle(f))
		}
	}
}

func (c *Client) handle(f frame) (resp Response) {
	if c.handler == nil {
		return Failure(fmt.Errorf("%w: %s", ErrNoReceiver, c.name))
	}
	defer func() {
		if r := recover(); r != nil {
			resp = Failure(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := c.handler.HandleMessage(context.Background(), *f.Request); err != nil {
		return Failure(err)
	}
	return OK
}

// Name returns the endpoint name the client registered as.
func (c *Client) Name() string { return c.name }

// Send delivers req to target through the bridge.
func (c *Client) Send(ctx context.Context, target string, req Request) (Response, error) {
	if req.From.Context == "" {
		req.From.Context = c.name
	}
	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}
	return c.peer.call(ctx, target, req)
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.peer.done }

// Close ends the connection.
func (c *Client) Close() error {
	return c.peer.close()
}
