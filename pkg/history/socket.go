package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame types exchanged with the browser.
const (
	// FrameHello is the client's first frame, carrying its current path.
	FrameHello = "hello"
	// FramePop reports a popstate (back/forward) in the browser.
	FramePop = "pop"
	// FramePush asks the browser to pushState.
	FramePush = "push"
	// FrameReplace asks the browser to replaceState.
	FrameReplace = "replace"
	// FrameGo asks the browser to history.go(delta).
	FrameGo = "go"
)

// ErrClosed is returned by writes after the socket closed.
var ErrClosed = errors.New("history: socket closed")

// ErrNoHello is returned by Accept when the first frame is not a hello.
var ErrNoHello = errors.New("history: expected hello frame")

// Frame is one JSON text message.
type Frame struct {
	Type  string `json:"type"`
	Path  string `json:"path,omitempty"`
	Delta int    `json:"delta,omitempty"`
}

// SocketConfig holds Socket timeouts.
type SocketConfig struct {
	// ReadTimeout bounds the wait for the hello frame and for each later
	// frame. Zero disables the deadline after hello.
	ReadTimeout time.Duration

	// WriteTimeout bounds each write.
	WriteTimeout time.Duration

	// HelloTimeout bounds the wait for the hello frame.
	HelloTimeout time.Duration
}

// DefaultSocketConfig returns the defaults used by Accept.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		ReadTimeout:  0,
		WriteTimeout: 10 * time.Second,
		HelloTimeout: 10 * time.Second,
	}
}

// SocketOption configures a Socket.
type SocketOption func(*Socket)

// WithSocketLogger sets the socket's logger.
func WithSocketLogger(logger *slog.Logger) SocketOption {
	return func(s *Socket) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSocketConfig overrides DefaultSocketConfig.
func WithSocketConfig(cfg SocketConfig) SocketOption {
	return func(s *Socket) {
		s.config = cfg
	}
}

// Socket is a location store backed by a browser tab on the other end of a
// WebSocket. Writes are sent as push/replace frames; pop frames from the
// browser are delivered to listeners.
type Socket struct {
	conn   *websocket.Conn
	logger *slog.Logger
	config SocketConfig

	writeMu sync.Mutex

	mu       sync.Mutex
	location string
	closed   bool

	listeners listeners
	done      chan struct{}
	closeOnce sync.Once
}

// Accept waits for the browser's hello frame and returns a Socket positioned
// at the path it reported. Call ReadLoop to start following pop frames.
func Accept(ctx context.Context, conn *websocket.Conn, opts ...SocketOption) (*Socket, error) {
	s := &Socket{
		conn:   conn,
		logger: slog.Default().With("component", "history.socket"),
		config: DefaultSocketConfig(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	var deadline time.Time
	if s.config.HelloTimeout > 0 {
		deadline = time.Now().Add(s.config.HelloTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if !deadline.IsZero() {
		_ = conn.SetReadDeadline(deadline)
	}

	frame, err := s.readFrame()
	if err != nil {
		return nil, fmt.Errorf("history: read hello: %w", err)
	}
	if frame.Type != FrameHello {
		return nil, fmt.Errorf("%w, got %q", ErrNoHello, frame.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	s.location = frame.Path
	if s.location == "" {
		s.location = "/"
	}
	return s, nil
}

// Location returns the path the browser last reported or was told.
func (s *Socket) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Push sends a push frame.
func (s *Socket) Push(path string) error {
	return s.write(ModePush, path)
}

// Replace sends a replace frame.
func (s *Socket) Replace(path string) error {
	return s.write(ModeReplace, path)
}

func (s *Socket) write(mode Mode, path string) error {
	if err := s.send(Frame{Type: mode.String(), Path: path}); err != nil {
		return err
	}
	s.mu.Lock()
	s.location = path
	s.mu.Unlock()
	return nil
}

// Go asks the browser to traverse. The resulting location arrives later as
// a pop frame.
func (s *Socket) Go(delta int) error {
	if delta == 0 {
		return nil
	}
	return s.send(Frame{Type: FrameGo, Delta: delta})
}

// Listen registers fn for pop frames.
func (s *Socket) Listen(fn func(path string)) (stop func()) {
	return s.listeners.add(fn)
}

// Done is closed when the socket closes.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// ReadLoop reads frames until the connection ends, delivering pop frames to
// listeners on the calling goroutine. It closes the socket before returning.
func (s *Socket) ReadLoop() {
	defer s.Close()

	for {
		if s.config.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}

		frame, err := s.readFrame()
		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.logger.Error("frame decode error", "error", err)
				continue
			}
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		switch frame.Type {
		case FramePop:
			s.mu.Lock()
			s.location = frame.Path
			s.mu.Unlock()
			s.listeners.notify(frame.Path)

		case FrameHello:
			s.logger.Warn("duplicate hello frame", "path", frame.Path)

		default:
			s.logger.Warn("unknown frame type", "type", frame.Type)
		}
	}
}

// readFrame reads one message and decodes it.
func (s *Socket) readFrame() (Frame, error) {
	var frame Frame
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return frame, err
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return frame, err
	}
	return frame, nil
}

func (s *Socket) send(frame Frame) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.config.WriteTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the connection. It is safe to call
// more than once.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()

		err = s.conn.Close()
		close(s.done)
	})
	return err
}
