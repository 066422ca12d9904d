package api

import (
	"context"
	"io"
	"sync"

	apierrors "github.com/diogo/streamchat/internal/errors"
)

// ChunkReader is an io.ReadCloser that returns one predefined chunk per Read
// call, simulating a chunked HTTP body. Err, if set, is returned after the
// last chunk instead of io.EOF.
type ChunkReader struct {
	Chunks [][]byte
	Err    error
	// Block, if set, is waited on before each Read. Closing it releases the reader.
	Block <-chan struct{}
	ctx   context.Context

	mu     sync.Mutex
	pos    int
	closed bool
}

// NewChunkReader creates a ChunkReader from string chunks.
func NewChunkReader(chunks ...string) *ChunkReader {
	r := &ChunkReader{}
	for _, c := range chunks {
		r.Chunks = append(r.Chunks, []byte(c))
	}
	return r
}

// Read implements io.Reader
func (r *ChunkReader) Read(p []byte) (int, error) {
	if r.Block != nil {
		ctx := r.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		select {
		case <-r.Block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, io.ErrClosedPipe
	}
	if r.pos >= len(r.Chunks) {
		if r.Err != nil {
			return 0, r.Err
		}
		return 0, io.EOF
	}

	chunk := r.Chunks[r.pos]
	n := copy(p, chunk)
	if n < len(chunk) {
		r.Chunks[r.pos] = chunk[n:]
	} else {
		r.pos++
	}
	return n, nil
}

// Close implements io.Closer
func (r *ChunkReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (r *ChunkReader) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// MockChatClient is a ChatStreamer for tests. Each call to StreamChat
// consumes the next entry of Responses; the last entry is reused.
type MockChatClient struct {
	Responses []MockResponse

	mu       sync.Mutex
	requests []ChatRequest
}

// MockResponse describes one canned reply.
type MockResponse struct {
	Status int          // 0 means 200
	Body   string       // error body for non-2xx statuses
	Err    error        // transport error before headers
	Reader *ChunkReader // streamed body for 2xx replies
}

var _ ChatStreamer = (*MockChatClient)(nil)

// NewMockChatClient returns a client replying 200 with the given chunks.
func NewMockChatClient(chunks ...string) *MockChatClient {
	return &MockChatClient{
		Responses: []MockResponse{{Reader: NewChunkReader(chunks...)}},
	}
}

// StreamChat implements ChatStreamer
func (m *MockChatClient) StreamChat(ctx context.Context, req ChatRequest) (*Stream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req.Normalize())
	idx := len(m.requests) - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	var resp MockResponse
	if idx >= 0 {
		resp = m.Responses[idx]
	}
	m.mu.Unlock()

	if resp.Err != nil {
		return nil, apierrors.NewTransportError(PathChat, resp.Err)
	}
	if resp.Status != 0 && (resp.Status < 200 || resp.Status > 299) {
		return nil, apierrors.NewRequestError(resp.Status, PathChat, resp.Body)
	}

	body := resp.Reader
	if body == nil {
		body = NewChunkReader()
	}
	body.ctx = ctx
	return NewStream(body, PathChat), nil
}

// Requests returns the normalized requests received so far.
func (m *MockChatClient) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of StreamChat calls.
func (m *MockChatClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
