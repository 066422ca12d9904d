package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apierrors "github.com/diogo/streamchat/internal/errors"
)

// ErrHeaderTimeout is wrapped by the transport error returned when the backend
// does not answer within the client's header timeout.
var ErrHeaderTimeout = errors.New("response header timeout")

// maxErrorBody limits how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 * 1024

// ChatRequest is the JSON body accepted by PathChat.
type ChatRequest struct {
	DeveloperMessage string `json:"developer_message"`
	UserMessage      string `json:"user_message"`
	Model            string `json:"model"`
}

// Normalize fills in the default developer message.
func (r ChatRequest) Normalize() ChatRequest {
	if strings.TrimSpace(r.DeveloperMessage) == "" {
		r.DeveloperMessage = DefaultDeveloperMessage
	}
	return r
}

// ChatStreamer opens a streamed chat completion.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req ChatRequest) (*Stream, error)
}

var _ ChatStreamer = (*Client)(nil)

// StreamChat posts req to the chat endpoint and returns the response body as
// a stream of text fragments. A non-2xx status or a transport failure before
// the headers arrive is returned as *errors.RequestError. The caller must
// Close the returned stream.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (*Stream, error) {
	endpoint := c.ChatEndpoint()

	if c.IsClosed() {
		return nil, apierrors.NewTransportError(endpoint, fmt.Errorf("client is closed"))
	}

	req = req.Normalize()
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	// reqCtx outlives this call: it is cancelled when the stream is closed.
	reqCtx, cancel := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", acceptStream)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(HeaderRequestID, requestID)

	log := c.logger.With(
		zap.String("request_id", requestID),
		zap.String("model", req.Model),
	)
	log.Debug("sending chat request",
		zap.String("endpoint", endpoint),
		zap.Int("user_message_len", len(req.UserMessage)),
	)

	var headerTimer *time.Timer
	if c.headerTimeout > 0 {
		headerTimer = time.AfterFunc(c.headerTimeout, cancel)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	timedOut := headerTimer != nil && !headerTimer.Stop()
	if timedOut && err == nil {
		// The timer fired after Do returned, so the body is already cancelled.
		_ = resp.Body.Close()
		err = reqCtx.Err()
	}
	if err != nil {
		cancel()
		if timedOut {
			err = fmt.Errorf("no response headers within %s: %w", c.headerTimeout, ErrHeaderTimeout)
		}
		log.Warn("chat request failed", zap.Error(err))
		return nil, apierrors.NewTransportError(endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp.Body)
		cancel()
		log.Warn("chat request rejected",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, apierrors.NewRequestError(resp.StatusCode, endpoint, body)
	}

	log.Debug("chat response headers received",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	stream := NewStream(resp.Body, endpoint)
	stream.cancel = cancel
	stream.id = requestID
	stream.logger = log
	return stream, nil
}

// readErrorBody drains at most maxErrorBody bytes of a failed response and
// closes it.
func readErrorBody(body io.ReadCloser) string {
	if body == nil {
		return ""
	}
	defer func() { _ = body.Close() }()

	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return string(data)
}
