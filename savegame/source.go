package savegame

import (
	"bufio"
	"fmt"
	"io"
	"unicode/utf8"
)

// Source is the byte stream the decoder reads from. All multi-byte values
// are big-endian. Every EOF seen through a Source is reported as
// io.ErrUnexpectedEOF, since a well-formed stream always ends with the
// sentinel chunk id.
type Source interface {
	io.ByteReader

	// ReadFull fills p or fails.
	ReadFull(p []byte) error

	// ReadGamma reads one gamma-encoded unsigned integer.
	ReadGamma() (uint64, error)

	// ReadString reads a gamma length followed by that many UTF-8 bytes.
	ReadString() (string, error)

	// Offset returns the number of bytes consumed. It is used for error
	// context only.
	Offset() int64

	// Position describes the read position for diagnostics. It never
	// influences decoding.
	Position() string
}

// smallRead bounds the up-front allocation for length-prefixed reads.
// Longer reads grow their buffer as data actually arrives, so a corrupt
// length cannot force a huge allocation.
const smallRead = 64 << 10

// byteReader is the buffered reader shared by both sources.
type byteReader struct {
	r   *bufio.Reader
	off int64
}

func newByteReader(r io.Reader) *byteReader {
	return &byteReader{r: bufio.NewReader(r)}
}

func (b *byteReader) ReadByte() (byte, error) {
	c, err := b.r.ReadByte()
	if err != nil {
		return 0, unexpected(err)
	}
	b.off++
	return c, nil
}

func (b *byteReader) ReadFull(p []byte) error {
	n, err := io.ReadFull(b.r, p)
	b.off += int64(n)
	return unexpected(err)
}

func (b *byteReader) ReadGamma() (uint64, error) {
	return ReadGamma(b)
}

func (b *byteReader) ReadString() (string, error) {
	n, err := b.ReadGamma()
	if err != nil {
		return "", err
	}
	return readText(b, n)
}

// fullReader is the part of Source that readText needs.
type fullReader interface {
	ReadFull(p []byte) error
}

// readText reads n bytes from r and validates them as UTF-8.
func readText(r fullReader, n uint64) (string, error) {
	if n <= smallRead {
		buf := make([]byte, n)
		if err := r.ReadFull(buf); err != nil {
			return "", err
		}
		return validText(buf)
	}

	buf := make([]byte, 0, smallRead)
	for remaining := n; remaining > 0; {
		k := min(remaining, smallRead)
		buf = append(buf, make([]byte, k)...)
		if err := r.ReadFull(buf[len(buf)-int(k):]); err != nil {
			return "", err
		}
		remaining -= k
	}
	return validText(buf)
}

func validText(buf []byte) (string, error) {
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: %d byte string", ErrEncoding, len(buf))
	}
	return string(buf), nil
}

func (b *byteReader) Offset() int64 { return b.off }

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// -----------------------------------------------------------------------------
// Streaming source
// -----------------------------------------------------------------------------

// StreamSource reads a savegame file front to back: the header is parsed on
// construction and the payload is decompressed on the fly. It cannot seek.
type StreamSource struct {
	*byteReader
	header Header
	rc     io.ReadCloser
}

// NewStreamSource reads the header from r and wraps the remainder in the
// decompressor for its format.
func NewStreamSource(r io.Reader) (*StreamSource, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	c, err := CompressorFor(h.Format)
	if err != nil {
		return nil, err
	}
	rc, err := c.Decompress(r)
	if err != nil {
		return nil, fmt.Errorf("savegame: %s decompressor: %w", c.Name(), err)
	}
	return &StreamSource{
		byteReader: newByteReader(rc),
		header:     h,
		rc:         rc,
	}, nil
}

// Header returns the parsed outer header.
func (s *StreamSource) Header() Header { return s.header }

// Version returns the savegame version from the header.
func (s *StreamSource) Version() uint16 { return s.header.Version }

// Format returns the format tag from the header.
func (s *StreamSource) Format() Format { return s.header.Format }

func (s *StreamSource) Position() string {
	return fmt.Sprintf("no position information (streaming, %d bytes decoded)", s.off)
}

// Close releases the decompressor. It does not close the underlying reader.
func (s *StreamSource) Close() error {
	return s.rc.Close()
}

// -----------------------------------------------------------------------------
// Seekable source
// -----------------------------------------------------------------------------

// SeekSource reads an already decompressed payload, starting at the
// current position of the underlying reader. Offsets are reported relative
// to the start of that reader, which makes it the source of choice when
// reproducing byte positions from a dump.
type SeekSource struct {
	*byteReader
	base int64
}

// NewSeekSource wraps r, which must be positioned at the first chunk id.
func NewSeekSource(r io.ReadSeeker) (*SeekSource, error) {
	base, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("savegame: seek source: %w", err)
	}
	return &SeekSource{byteReader: newByteReader(r), base: base}, nil
}

// Offset returns the absolute offset within the underlying reader.
func (s *SeekSource) Offset() int64 { return s.base + s.off }

func (s *SeekSource) Position() string {
	return fmt.Sprintf("position in file: %d", s.Offset())
}

var (
	_ Source = (*StreamSource)(nil)
	_ Source = (*SeekSource)(nil)
)
