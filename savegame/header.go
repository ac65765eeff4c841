package savegame

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Format is the 4-byte tag opening a savegame file. It names the
// compression applied to everything after the header.
type Format string

// Known savegame formats.
const (
	FormatNone Format = "OTTN"
	FormatZlib Format = "OTTZ"
	FormatLZMA Format = "OTTX"
	FormatLZO  Format = "OTTD"
)

// headerSize is the format tag, the version and two unused bytes.
const headerSize = 8

// Header is the uncompressed prefix of a savegame file.
type Header struct {
	Format  Format
	Version uint16
}

// ReadHeader reads the outer header, leaving r positioned at the start of
// the compressed payload. Unknown format tags are returned as-is; they are
// rejected when a decompressor is selected.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Header{}, fmt.Errorf("savegame: reading header: %w", err)
	}
	return Header{
		Format:  Format(buf[0:4]),
		Version: binary.BigEndian.Uint16(buf[4:6]),
	}, nil
}

// AppendHeader appends the encoded header to dst.
func AppendHeader(dst []byte, h Header) []byte {
	var tag [4]byte
	copy(tag[:], h.Format)
	dst = append(dst, tag[:]...)
	dst = binary.BigEndian.AppendUint16(dst, h.Version)
	return append(dst, 0, 0)
}

// CompressorFor returns the compressor that decodes payloads of format f.
func CompressorFor(f Format) (Compressor, error) {
	switch f {
	case FormatNone:
		return NewNoOpCompressor(), nil
	case FormatZlib:
		return NewZlibCompressor(), nil
	case FormatLZMA:
		return NewXZCompressor(), nil
	case FormatLZO:
		return NewLZOCompressor(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}
