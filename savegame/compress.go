package savegame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/rasky/go-lzo"
	"github.com/ulikunitz/xz"
)

// CompressorByName returns the compressor registered under name.
func CompressorByName(name string) (Compressor, error) {
	switch name {
	case "noop", "":
		return NewNoOpCompressor(), nil
	case "gzip":
		return NewGzipCompressor(), nil
	case "zstd":
		return NewZstdCompressor(), nil
	case "zlib":
		return NewZlibCompressor(), nil
	case "xz":
		return NewXZCompressor(), nil
	case "lzo":
		return NewLZOCompressor(), nil
	default:
		return nil, fmt.Errorf("savegame: unknown compressor %q", name)
	}
}

// -----------------------------------------------------------------------------
// NoOp Compressor
// -----------------------------------------------------------------------------

// noopCompressor implements Compressor with no compression.
type noopCompressor struct{}

// NewNoOpCompressor creates a noop compressor.
//
// Data passes through unchanged. Uncompressed savegames (OTTN) use it.
func NewNoOpCompressor() Compressor {
	return &noopCompressor{}
}

func (n *noopCompressor) Name() string {
	return "noop"
}

func (n *noopCompressor) Extension() string {
	return ""
}

func (n *noopCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return &noopWriteCloser{w}, nil
}

func (n *noopCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type noopWriteCloser struct {
	io.Writer
}

func (n *noopWriteCloser) Close() error {
	return nil
}

// -----------------------------------------------------------------------------
// Gzip Compressor
// -----------------------------------------------------------------------------

// gzipCompressor implements Compressor using gzip compression.
type gzipCompressor struct{}

// NewGzipCompressor creates a gzip compressor for exports.
func NewGzipCompressor() Compressor {
	return &gzipCompressor{}
}

func (g *gzipCompressor) Name() string {
	return "gzip"
}

func (g *gzipCompressor) Extension() string {
	return ".gz"
}

func (g *gzipCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (g *gzipCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// -----------------------------------------------------------------------------
// Zstd Compressor
// -----------------------------------------------------------------------------

// zstdCompressor implements Compressor using zstd compression.
type zstdCompressor struct{}

// NewZstdCompressor creates a zstd compressor for exports.
//
// Zstd provides higher compression ratios and faster decompression than gzip.
func NewZstdCompressor() Compressor {
	return &zstdCompressor{}
}

func (z *zstdCompressor) Name() string {
	return "zstd"
}

func (z *zstdCompressor) Extension() string {
	return ".zst"
}

func (z *zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (z *zstdCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// -----------------------------------------------------------------------------
// Zlib Compressor
// -----------------------------------------------------------------------------

// zlibCompressor implements Compressor for OTTZ savegames.
type zlibCompressor struct{}

// NewZlibCompressor creates a zlib compressor.
func NewZlibCompressor() Compressor {
	return &zlibCompressor{}
}

func (z *zlibCompressor) Name() string {
	return "zlib"
}

func (z *zlibCompressor) Extension() string {
	return ".zz"
}

func (z *zlibCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zlib.NewWriter(w), nil
}

func (z *zlibCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}

// -----------------------------------------------------------------------------
// XZ Compressor
// -----------------------------------------------------------------------------

// xzCompressor implements Compressor for OTTX savegames, which carry an
// xz container around LZMA2 data.
type xzCompressor struct{}

// NewXZCompressor creates an xz compressor.
func NewXZCompressor() Compressor {
	return &xzCompressor{}
}

func (x *xzCompressor) Name() string {
	return "xz"
}

func (x *xzCompressor) Extension() string {
	return ".xz"
}

func (x *xzCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func (x *xzCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

// -----------------------------------------------------------------------------
// LZO Compressor
// -----------------------------------------------------------------------------

// OTTD savegames are a sequence of independently compressed LZO1X blocks:
//
//	[checksum u32][size u32][size bytes of LZO1X data]
//
// Each block inflates to at most lzoBlockSize bytes. The checksum is an
// Adler-32 seeded with 0 (not 1) over the raw size bytes and the payload.
const (
	lzoBlockSize = 8192
	lzoMaxBlock  = lzoBlockSize + lzoBlockSize/64 + 16 + 3 + 8
)

// lzoCompressor implements Compressor for OTTD savegames.
type lzoCompressor struct{}

// NewLZOCompressor creates an LZO block compressor.
func NewLZOCompressor() Compressor {
	return &lzoCompressor{}
}

func (l *lzoCompressor) Name() string {
	return "lzo"
}

func (l *lzoCompressor) Extension() string {
	return ".lzo"
}

func (l *lzoCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return &lzoWriter{w: w, buf: make([]byte, 0, lzoBlockSize)}, nil
}

func (l *lzoCompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(&lzoReader{r: r}), nil
}

type lzoReader struct {
	r   io.Reader
	hdr [8]byte
	buf []byte
	err error
}

func (l *lzoReader) Read(p []byte) (int, error) {
	for len(l.buf) == 0 {
		if l.err != nil {
			return 0, l.err
		}
		l.err = l.fill()
	}
	n := copy(p, l.buf)
	l.buf = l.buf[n:]
	return n, nil
}

func (l *lzoReader) fill() error {
	if _, err := io.ReadFull(l.r, l.hdr[:]); err != nil {
		return err
	}
	sum := binary.BigEndian.Uint32(l.hdr[0:4])
	size := binary.BigEndian.Uint32(l.hdr[4:8])
	if size >= lzoMaxBlock {
		return fmt.Errorf("%w: lzo block of %d bytes", ErrFormat, size)
	}

	block := make([]byte, 4+size)
	copy(block, l.hdr[4:8])
	if _, err := io.ReadFull(l.r, block[4:]); err != nil {
		return unexpected(err)
	}
	if got := lzoAdler32(block); got != sum {
		return fmt.Errorf("%w: lzo block checksum %#08x, want %#08x", ErrFormat, got, sum)
	}

	out, err := lzo.Decompress1X(bytes.NewReader(block[4:]), int(size), lzoBlockSize)
	if err != nil {
		return fmt.Errorf("%w: lzo: %v", ErrFormat, err)
	}
	if len(out) > lzoBlockSize {
		return fmt.Errorf("%w: lzo block inflates to %d bytes", ErrFormat, len(out))
	}
	l.buf = out
	return nil
}

type lzoWriter struct {
	w   io.Writer
	buf []byte
}

func (l *lzoWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := copy(l.buf[len(l.buf):cap(l.buf)], p)
		l.buf = l.buf[:len(l.buf)+n]
		p = p[n:]
		written += n
		if len(l.buf) == cap(l.buf) {
			if err := l.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (l *lzoWriter) flush() error {
	if len(l.buf) == 0 {
		return nil
	}
	packed := lzo.Compress1X(l.buf)
	block := make([]byte, 8+len(packed))
	binary.BigEndian.PutUint32(block[4:8], uint32(len(packed)))
	copy(block[8:], packed)
	binary.BigEndian.PutUint32(block[0:4], lzoAdler32(block[4:]))
	l.buf = l.buf[:0]
	_, err := l.w.Write(block)
	return err
}

func (l *lzoWriter) Close() error {
	return l.flush()
}

// lzoAdler32 is Adler-32 with both sums starting at zero, as used by the
// LZO block framing. hash/adler32 always starts at one.
func lzoAdler32(p []byte) uint32 {
	const (
		mod  = 65521
		nmax = 5552
	)
	var s1, s2 uint32
	for len(p) > 0 {
		n := min(len(p), nmax)
		for _, c := range p[:n] {
			s1 += uint32(c)
			s2 += s1
		}
		s1 %= mod
		s2 %= mod
		p = p[n:]
	}
	return s2<<16 | s1
}
