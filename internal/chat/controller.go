package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diogo/streamchat/internal/api"
	apierrors "github.com/diogo/streamchat/internal/errors"
)

// Controller owns one chat session: its transcript, its settings and at most
// one in-flight exchange. All methods are safe for concurrent use.
type Controller struct {
	backend api.ChatStreamer
	logger  *zap.Logger

	mu       sync.Mutex
	state    State
	settings Settings
	gen      uint64 // bumped by Clear; exchanges from older generations are inert
	cancel   context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSettings sets the initial session settings.
func WithSettings(s Settings) Option {
	return func(c *Controller) {
		c.settings = s
	}
}

// NewController creates a controller that sends requests through backend.
func NewController(backend api.ChatStreamer, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		logger:  zap.NewNop(),
		state:   State{Turns: []Turn{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Settings returns the current session settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetSettings replaces the session settings. They take effect on the next send.
func (c *Controller) SetSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// SetModel changes the model used for the next send.
func (c *Controller) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Model = model
}

// SetSystemMessage changes the system message used for the next send.
func (c *Controller) SetSystemMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.SystemMessage = msg
}

// InFlight reports whether an exchange is running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.InFlight
}

// Clear empties the transcript and the error banner. An in-flight exchange
// is cancelled and its later updates are discarded.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.logger.Debug("in-flight exchange cancelled by clear")
	}
	c.gen++
	c.state = c.state.Cleared()
}

// Start validates userText, appends the user turn and the assistant
// placeholder, and sends the request. It blocks until the response headers
// arrive. On a failed request the placeholder is rolled back and a
// *errors.RequestError is returned; the returned error is also recorded in
// the state's banner. On success the returned Exchange yields the streamed
// reply.
func (c *Controller) Start(ctx context.Context, userText string) (*Exchange, error) {
	if err := Validate(userText); err != nil {
		c.mu.Lock()
		c.state = c.state.Rejected(err)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	if c.state.InFlight {
		c.mu.Unlock()
		return nil, apierrors.ErrBusy
	}
	settings := c.settings
	c.state = c.state.BeginExchange(userText)
	gen := c.gen
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	req := api.ChatRequest{
		DeveloperMessage: settings.SystemMessage,
		UserMessage:      userText,
		Model:            settings.Model,
	}

	log := c.logger.With(zap.String("model", settings.Model))
	log.Info("sending message", zap.Int("length", len(userText)))
	start := time.Now()

	stream, err := c.backend.StreamChat(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		cancel()
		if stream != nil {
			_ = stream.Close()
		}
		return nil, apierrors.ErrExchangeCancelled
	}

	if err != nil {
		c.releaseLocked()
		c.state = c.state.Rollback(err)
		log.Warn("request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	c.state = c.state.StartStreaming()
	if id := stream.ID(); id != "" {
		log = log.With(zap.String("request_id", id))
	}

	return &Exchange{
		c:      c,
		gen:    gen,
		stream: stream,
		logger: log,
		start:  start,
	}, nil
}

// Send runs a whole exchange: Start followed by Next until the stream ends.
// onUpdate, if non-nil, is called with a snapshot after every state change.
func (c *Controller) Send(ctx context.Context, userText string, onUpdate func(State)) error {
	notify := func() {
		if onUpdate != nil {
			onUpdate(c.Snapshot())
		}
	}

	ex, err := c.Start(ctx, userText)
	notify()
	if err != nil {
		return err
	}
	defer ex.Close()

	for {
		snap, err := ex.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				notify()
				return nil
			}
			if !apierrors.IsCancelled(err) {
				notify()
			}
			return err
		}
		if onUpdate != nil {
			onUpdate(snap)
		}
	}
}

// releaseLocked drops the cancel func of the finished exchange. c.mu must be held.
func (c *Controller) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Exchange is one streamed reply being applied to the controller's state.
type Exchange struct {
	c      *Controller
	gen    uint64
	stream *api.Stream
	logger *zap.Logger
	start  time.Time

	acc  strings.Builder
	done bool
	err  error
}

// Next pulls the next fragment, appends it to the accumulated reply and
// replaces the assistant turn's content with it. It returns the new
// snapshot, io.EOF once the reply is complete, a *errors.StreamError if the
// transport failed midway, or errors.ErrExchangeCancelled after Clear.
func (e *Exchange) Next() (State, error) {
	e.c.mu.Lock()
	if e.done {
		defer e.c.mu.Unlock()
		return e.c.state.Clone(), e.err
	}
	e.c.mu.Unlock()

	frag, err := e.stream.Next()

	e.c.mu.Lock()
	defer e.c.mu.Unlock()

	if e.c.gen != e.gen {
		return e.endLocked(apierrors.ErrExchangeCancelled)
	}

	if frag != "" {
		e.acc.WriteString(frag)
		e.c.state = e.c.state.ApplyContent(e.acc.String())
		if err == nil {
			return e.c.state.Clone(), nil
		}
	}

	switch {
	case err == nil:
		return e.c.state.Clone(), nil
	case errors.Is(err, io.EOF):
		e.c.releaseLocked()
		e.c.state = e.c.state.Finish()
		e.logger.Info("reply complete",
			zap.Int("chars", e.acc.Len()),
			zap.Int("bytes", e.stream.BytesReceived()),
			zap.Duration("elapsed", time.Since(e.start)),
		)
		return e.endLocked(io.EOF)
	default:
		wrapped := err
		if !apierrors.IsStreamError(err) {
			wrapped = apierrors.NewStreamError("", e.stream.BytesReceived(), err)
		}
		e.c.releaseLocked()
		e.c.state = e.c.state.Interrupt(wrapped)
		e.logger.Warn("reply interrupted",
			zap.Error(err),
			zap.Int("chars", e.acc.Len()),
		)
		return e.endLocked(wrapped)
	}
}

// endLocked marks the exchange finished. e.c.mu must be held.
func (e *Exchange) endLocked(err error) (State, error) {
	e.done = true
	e.err = err
	_ = e.stream.Close()
	return e.c.state.Clone(), err
}

// Content returns the reply accumulated so far.
func (e *Exchange) Content() string {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	return e.acc.String()
}

// Close abandons the exchange. If it is still current, the session returns
// to idle with whatever content was received.
func (e *Exchange) Close() {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()

	if e.done {
		return
	}
	if e.c.gen == e.gen && e.c.state.InFlight {
		e.c.releaseLocked()
		e.c.state = e.c.state.Interrupt(fmt.Errorf("%w: reply abandoned", apierrors.ErrExchangeCancelled))
	}
	_, _ = e.endLocked(apierrors.ErrExchangeCancelled)
}
