package api

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// fragmentDecoder turns raw body chunks into UTF-8 text. Bytes of a
// multi-byte character split across chunks are held back until the rest
// arrives; invalid sequences become U+FFFD.
type fragmentDecoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

func newFragmentDecoder() *fragmentDecoder {
	return &fragmentDecoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, 4096),
	}
}

// decode appends chunk to any held-back bytes and returns the text that is
// complete. atEOF flushes everything, including a dangling partial character.
func (d *fragmentDecoder) decode(chunk []byte, atEOF bool) (string, error) {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}

	var out []byte
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out = append(out, d.dst[:nDst]...)
		src = src[nSrc:]

		switch {
		case err == nil:
			return string(out), nil
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
			return string(out), nil
		default:
			return string(out), err
		}
	}
}

// buffered reports how many bytes are held back waiting for the rest of a character.
func (d *fragmentDecoder) buffered() int {
	return len(d.pending)
}
