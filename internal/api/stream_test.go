package api

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/streamchat/internal/errors"
)

func collectFragments(t *testing.T, s *Stream) ([]string, error) {
	t.Helper()
	var frags []string
	for i := 0; i < 1000; i++ {
		frag, err := s.Next()
		if frag != "" {
			frags = append(frags, frag)
		}
		if err != nil {
			return frags, err
		}
	}
	t.Fatal("stream did not terminate")
	return nil, nil
}

func TestStream_FragmentsInOrder(t *testing.T) {
	s := NewStream(NewChunkReader("Hi", " there", "!"), PathChat)

	frags, err := collectFragments(t, s)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"Hi", " there", "!"}, frags)
	assert.Equal(t, 9, s.BytesReceived())
}

func TestStream_SplitMultiByteCharacters(t *testing.T) {
	euro := []byte("€")
	emoji := []byte("👋")
	accent := []byte("é")
	body := &ChunkReader{Chunks: [][]byte{
		append([]byte("caf"), accent[0]),
		append([]byte{accent[1]}, []byte(" costs 5")...),
		euro[:1],
		euro[1:2],
		append(euro[2:], ' '),
		emoji[:3],
		emoji[3:],
	}}

	s := NewStream(body, PathChat)
	frags, err := collectFragments(t, s)
	require.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "café costs 5€ 👋", strings.Join(frags, ""))
	for _, f := range frags {
		assert.NotContains(t, f, "�", "no fragment may contain a broken character")
	}
}

func TestStream_EveryByteSeparately(t *testing.T) {
	text := "Grüße, 世界 🌍!"
	body := &ChunkReader{}
	for _, b := range []byte(text) {
		body.Chunks = append(body.Chunks, []byte{b})
	}

	got, err := NewStream(body, PathChat).Collect()
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestStream_DanglingBytesAtEOF(t *testing.T) {
	emoji := []byte("👋")
	body := &ChunkReader{Chunks: [][]byte{[]byte("bye "), emoji[:2]}}

	got, err := NewStream(body, PathChat).Collect()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "bye "))
	assert.Contains(t, got, "�", "an unfinished character is flushed as a replacement")
}

func TestStream_InvalidBytesReplaced(t *testing.T) {
	body := &ChunkReader{Chunks: [][]byte{{'a', 0xff, 'b'}}}

	got, err := NewStream(body, PathChat).Collect()
	require.NoError(t, err)
	assert.Equal(t, "a�b", got)
}

func TestStream_MidStreamError(t *testing.T) {
	body := NewChunkReader("partial ", "answer")
	body.Err = io.ErrUnexpectedEOF

	s := NewStream(body, PathChat)
	frags, err := collectFragments(t, s)

	assert.Equal(t, []string{"partial ", "answer"}, frags)
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
	assert.True(t, apierrors.IsStreamError(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var streamErr *apierrors.StreamError
	require.True(t, errors.As(err, &streamErr))
	assert.Equal(t, 14, streamErr.BytesReceived)

	// terminal error is sticky
	_, again := s.Next()
	assert.Equal(t, err, again)
}

func TestStream_EmptyBody(t *testing.T) {
	s := NewStream(NewChunkReader(), PathChat)

	frag, err := s.Next()
	assert.Equal(t, "", frag)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_ClosesBodyOnFinish(t *testing.T) {
	body := NewChunkReader("done")
	s := NewStream(body, PathChat)

	_, err := s.Collect()
	require.NoError(t, err)
	assert.True(t, body.IsClosed())
	assert.NoError(t, s.Close(), "Close is idempotent")
}

// dataAndEOFReader returns its data together with io.EOF in one call.
type dataAndEOFReader struct {
	data []byte
	read bool
}

func (r *dataAndEOFReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, io.EOF
	}
	r.read = true
	return copy(p, r.data), io.EOF
}

func (r *dataAndEOFReader) Close() error { return nil }

func TestStream_DataWithEOF(t *testing.T) {
	s := NewStream(&dataAndEOFReader{data: []byte("last words")}, PathChat)

	frags, err := collectFragments(t, s)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"last words"}, frags)
}

func TestFragmentDecoder_LargeChunk(t *testing.T) {
	d := newFragmentDecoder()
	big := strings.Repeat("ab€", 5000)

	out, err := d.decode([]byte(big), false)
	require.NoError(t, err)
	assert.Equal(t, big, out)
	assert.Equal(t, 0, d.buffered())
}
