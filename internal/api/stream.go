package api

import (
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	apierrors "github.com/diogo/streamchat/internal/errors"
)

const readChunkSize = 4096

// Stream is a finite, non-restartable sequence of text fragments read from a
// chunked response body.
type Stream struct {
	id       string
	endpoint string
	body     io.ReadCloser
	dec      *fragmentDecoder
	buf      []byte
	logger   *zap.Logger

	received  int
	fragments int
	done      bool
	err       error // terminal error returned once the stream is done
	pending   error // read error seen together with data, surfaced on the next call

	cancel    func() // releases the request context, if any

	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps a response body. It is exported so callers can stream
// bodies obtained elsewhere, such as test fixtures.
func NewStream(body io.ReadCloser, endpoint string) *Stream {
	return &Stream{
		endpoint: endpoint,
		body:     body,
		dec:      newFragmentDecoder(),
		buf:      make([]byte, readChunkSize),
		logger:   zap.NewNop(),
	}
}

// ID returns the request id sent in the X-Request-ID header, if any.
func (s *Stream) ID() string {
	return s.id
}

// BytesReceived returns the number of raw body bytes read so far.
func (s *Stream) BytesReceived() int {
	return s.received
}

// Next returns the next decoded fragment. It returns io.EOF once the body
// ended normally and *errors.StreamError if the transport failed mid-body.
// After the first error every call returns the same error.
func (s *Stream) Next() (string, error) {
	for {
		if s.done {
			return "", s.err
		}

		if s.pending != nil {
			return s.finish(s.pending)
		}

		n, readErr := s.body.Read(s.buf)
		if n > 0 {
			s.received += n
			text, decErr := s.dec.decode(s.buf[:n], false)
			if decErr != nil {
				return s.finish(decErr)
			}
			if readErr != nil {
				s.pending = readErr
			}
			if text != "" {
				s.fragments++
				s.logger.Debug("fragment received",
					zap.Int("bytes", n),
					zap.Int("held_back", s.dec.buffered()),
				)
				return text, nil
			}
			continue
		}

		if readErr != nil {
			return s.finish(readErr)
		}
	}
}

// finish flushes the decoder and records the terminal error. A trailing
// fragment produced by the flush is returned before the terminal error.
func (s *Stream) finish(readErr error) (string, error) {
	s.pending = nil
	s.done = true

	if errors.Is(readErr, io.EOF) {
		s.err = io.EOF
	} else {
		s.err = apierrors.NewStreamError(s.endpoint, s.received, readErr)
	}
	s.logger.Debug("stream finished",
		zap.Int("bytes", s.received),
		zap.Int("fragments", s.fragments),
		zap.NamedError("reason", readErr),
	)
	_ = s.Close()

	if s.dec.buffered() > 0 {
		tail, _ := s.dec.decode(nil, true)
		if tail != "" {
			s.fragments++
			return tail, nil
		}
	}
	return "", s.err
}

// Close releases the response body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if s.body != nil {
			s.closeErr = s.body.Close()
		}
		if s.cancel != nil {
			s.cancel()
		}
	})
	return s.closeErr
}

// Collect drains the stream and returns the concatenated text. io.EOF is not
// reported as an error.
func (s *Stream) Collect() (string, error) {
	var out []byte
	for {
		frag, err := s.Next()
		out = append(out, frag...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return string(out), nil
			}
			return string(out), err
		}
	}
}
