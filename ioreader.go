package zstd

import (
	"io"

	"go.uber.org/atomic"
)

// reader adapts a Context's DecompressStream to io.Reader/io.Closer,
// pulling from an underlying io.Reader as input runs low, the same
// layering the teacher project uses for its own io.Reader on top of a
// lower-level read primitive.
type reader struct {
	ctx *Context
	src io.Reader

	in  CursorBuffer
	eof bool

	closed atomic.Bool
}

// NewReader wraps r so that Read returns decompressed bytes. The
// returned io.ReadCloser's Close releases the Context; it does not
// close r.
func (c *Context) NewReader(r io.Reader) io.ReadCloser {
	return &reader{ctx: c, src: r, in: CursorBuffer{Data: make([]byte, 0, decodeChunkSize)}}
}

func (z *reader) Read(p []byte) (int, error) {
	if z.closed.Load() {
		return 0, newDecodeError(KindStageWrong, -1, "read from closed reader")
	}
	if len(p) == 0 {
		return 0, nil
	}

	out := CursorBuffer{Data: p}
	for {
		if z.in.remaining() == 0 && !z.eof {
			if err := z.refill(); err != nil && err != io.EOF {
				return out.Pos, err
			} else if err == io.EOF {
				z.eof = true
			}
		}

		hint, err := z.ctx.DecompressStream(&out, &z.in)
		if err != nil {
			return out.Pos, err
		}
		if out.Pos > 0 {
			return out.Pos, nil
		}
		if hint == 0 {
			return 0, io.EOF
		}
		if z.eof && z.in.remaining() == 0 {
			if z.ctx.stream.stage == dsExpectFrameHeader && len(z.ctx.stream.staged) == 0 {
				return 0, io.EOF
			}
			return 0, io.ErrUnexpectedEOF
		}
	}
}

func (z *reader) refill() error {
	buf := make([]byte, decodeChunkSize)
	n, err := z.src.Read(buf)
	if n > 0 {
		z.in = CursorBuffer{Data: buf[:n]}
	}
	if err != nil {
		return err
	}
	return nil
}

func (z *reader) Close() error {
	if !z.closed.CompareAndSwap(false, true) {
		return nil
	}
	return z.ctx.Close()
}
