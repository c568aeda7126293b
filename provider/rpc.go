package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sourcegraph/jsonrpc2"
)

// RPCOption configures an RPCProvider.
type RPCOption func(*rpcConfig)

type rpcConfig struct {
	header http.Header
	log    *slog.Logger
}

// WithHeader sets extra HTTP headers sent on the WebSocket handshake.
func WithHeader(h http.Header) RPCOption {
	return func(c *rpcConfig) {
		c.header = h
	}
}

// WithLogger sets the logger used for notification handling.
func WithLogger(log *slog.Logger) RPCOption {
	return func(c *rpcConfig) {
		c.log = log
	}
}

// RPCProvider talks to a wallet bridge that speaks EIP-1193 as JSON-RPC 2.0
// over a WebSocket. Requests map to JSON-RPC calls; accountsChanged and
// chainChanged arrive as JSON-RPC notifications.
type RPCProvider struct {
	*Emitter

	conn *jsonrpc2.Conn
	log  *slog.Logger

	// queue holds notifications not yet handed to listeners. The read loop
	// only appends, so a listener that calls back into the provider can
	// always get its reply read.
	qmu   sync.Mutex
	queue []Event
	wake  chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

var _ Provider = (*RPCProvider)(nil)

// Dial connects to the wallet bridge at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ...RPCOption) (*RPCProvider, error) {
	cfg := &rpcConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: cfg.header})
	if err != nil {
		return nil, fmt.Errorf("dial wallet bridge: %w", err)
	}

	return NewRPCProvider(newFrameStream(ws), cfg.log), nil
}

// NewRPCProvider wraps an established JSON-RPC object stream.
func NewRPCProvider(stream jsonrpc2.ObjectStream, log *slog.Logger) *RPCProvider {
	if log == nil {
		log = slog.Default()
	}
	p := &RPCProvider{
		Emitter: NewEmitter(),
		log:     log,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.conn = jsonrpc2.NewConn(context.Background(), stream, &notificationHandler{p: p})
	go p.dispatch()
	return p
}

// enqueue adds ev to the pending notifications without blocking. A
// chainChanged directly behind another pending chainChanged replaces it:
// only the latest chain matters to a reload.
func (p *RPCProvider) enqueue(ev Event) {
	p.qmu.Lock()
	if n := len(p.queue); n > 0 && ev.Name == EventChainChanged && p.queue[n-1].Name == EventChainChanged {
		p.queue[n-1] = ev
	} else {
		p.queue = append(p.queue, ev)
	}
	p.qmu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest pending notification.
func (p *RPCProvider) next() (Event, bool) {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	if len(p.queue) == 0 {
		return Event{}, false
	}
	ev := p.queue[0]
	p.queue[0] = Event{}
	p.queue = p.queue[1:]
	return ev, true
}

// dispatch delivers queued notifications in arrival order. Listeners run
// here rather than on the read loop so they may call back into the provider.
func (p *RPCProvider) dispatch() {
	for {
		select {
		case <-p.wake:
		case <-p.done:
			return
		case <-p.conn.DisconnectNotify():
			return
		}
		for {
			ev, ok := p.next()
			if !ok {
				break
			}
			select {
			case <-p.done:
				return
			default:
			}
			p.Emit(ev)
		}
	}
}

// RequestAccounts implements Provider.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.call(ctx, MethodRequestAccounts, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts implements Provider.
func (p *RPCProvider) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.call(ctx, MethodAccounts, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ChainID implements Provider.
func (p *RPCProvider) ChainID(ctx context.Context) (string, error) {
	var id string
	if err := p.call(ctx, MethodChainID, &id); err != nil {
		return "", err
	}
	return id, nil
}

// Done is closed when the underlying connection goes away.
func (p *RPCProvider) Done() <-chan struct{} {
	return p.conn.DisconnectNotify()
}

// Close implements Provider.
func (p *RPCProvider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.RemoveAll()
		err = p.conn.Close()
		if errors.Is(err, jsonrpc2.ErrClosed) {
			err = nil
		}
	})
	return err
}

func (p *RPCProvider) call(ctx context.Context, method string, result any) error {
	err := p.conn.Call(ctx, method, []any{}, result)
	if err == nil {
		return nil
	}
	if errors.Is(err, jsonrpc2.ErrClosed) {
		return ErrClosed
	}

	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case CodeUserRejected:
			return fmt.Errorf("%s: %w: %s", method, ErrUserRejected, rpcErr.Message)
		case CodeUnauthorized:
			return fmt.Errorf("%s: %w: %s", method, ErrUnauthorized, rpcErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", method, err)
}

// notificationHandler turns inbound JSON-RPC notifications into Events.
type notificationHandler struct {
	p *RPCProvider
}

func (h *notificationHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if !req.Notif {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "client does not serve requests",
		})
		return
	}

	ev, err := decodeEvent(req)
	if err != nil {
		h.p.log.Warn("dropping wallet notification", "method", req.Method, "error", err)
		return
	}
	h.p.log.Debug("wallet notification", "method", req.Method)
	h.p.enqueue(ev)
}

// decodeEvent accepts both a bare payload (["0x.."] / "0x1") and the
// positional form ([["0x.."]] / ["0x1"]).
func decodeEvent(req *jsonrpc2.Request) (Event, error) {
	var raw json.RawMessage
	if req.Params != nil {
		raw = *req.Params
	}

	switch req.Method {
	case EventAccountsChanged:
		var accounts []string
		if err := json.Unmarshal(raw, &accounts); err == nil {
			return Event{Name: EventAccountsChanged, Accounts: accounts}, nil
		}
		var wrapped [][]string
		if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped) != 1 {
			return Event{}, fmt.Errorf("malformed %s params", req.Method)
		}
		return Event{Name: EventAccountsChanged, Accounts: wrapped[0]}, nil

	case EventChainChanged:
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			return Event{Name: EventChainChanged, ChainID: id}, nil
		}
		var wrapped []string
		if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped) != 1 {
			return Event{}, fmt.Errorf("malformed %s params", req.Method)
		}
		return Event{Name: EventChainChanged, ChainID: wrapped[0]}, nil

	default:
		return Event{}, fmt.Errorf("unknown notification %q", req.Method)
	}
}

// maxFrameBytes caps a single bridge frame. Account lists are small.
const maxFrameBytes = 1 << 20

// frameStream carries one JSON-RPC object per WebSocket text frame. Its
// context ends on Close so a pending read returns instead of waiting for
// the bridge.
type frameStream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	wmu    sync.Mutex
}

func newFrameStream(conn *websocket.Conn) *frameStream {
	conn.SetReadLimit(maxFrameBytes)
	ctx, cancel := context.WithCancel(context.Background())
	return &frameStream{conn: conn, ctx: ctx, cancel: cancel}
}

func (s *frameStream) ReadObject(v interface{}) error {
	err := wsjson.Read(s.ctx, s.conn, v)
	if err == nil {
		return nil
	}
	// A bridge hanging up, or our own Close, ends the stream cleanly.
	if s.ctx.Err() != nil {
		return io.EOF
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return io.EOF
	}
	return fmt.Errorf("read bridge frame: %w", err)
}

func (s *frameStream) WriteObject(v interface{}) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return wsjson.Write(s.ctx, s.conn, v)
}

func (s *frameStream) Close() error {
	defer s.cancel()
	return s.conn.Close(websocket.StatusNormalClosure, "wallet provider closed")
}

var _ jsonrpc2.ObjectStream = (*frameStream)(nil)
