// Package savegame decodes chunked, self-describing savegame streams into
// ordered, schema-driven record tables.
//
// A savegame is a sequence of chunks. Table chunks carry their own field
// schema ahead of their rows, so the decoder needs no compiled-in knowledge
// of any chunk's layout. Opaque blob chunks are skipped by length. The
// result is a ChunkTable that serializes losslessly to JSON.
//
// Savegame does not write savegames and does not interpret chunk contents.
package savegame

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// -----------------------------------------------------------------------------
// Chunk identifiers
// -----------------------------------------------------------------------------

// ChunkID is the 4-byte tag naming a chunk, for example "LGRP".
type ChunkID [4]byte

// ParseChunkID converts a 4-character tag to a ChunkID.
func ParseChunkID(s string) (ChunkID, error) {
	var id ChunkID
	if len(s) != len(id) {
		return id, fmt.Errorf("savegame: chunk id %q must be 4 bytes", s)
	}
	copy(id[:], s)
	return id, nil
}

// MustChunkID is like ParseChunkID but panics on a malformed tag.
// Intended for package-level constants.
func MustChunkID(s string) ChunkID {
	id, err := ParseChunkID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ChunkID) String() string { return string(id[:]) }

// IsZero reports whether id is the end-of-stream sentinel.
func (id ChunkID) IsZero() bool { return id == ChunkID{} }

// ChunkKind is the chunk type selected by the low nibble of the type byte.
type ChunkKind uint8

// Chunk kinds as they appear on the wire.
const (
	ChunkKindRIFF ChunkKind = iota
	ChunkKindArray
	ChunkKindSparseArray
	ChunkKindTable
	ChunkKindSparseTable
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkKindRIFF:
		return "riff"
	case ChunkKindArray:
		return "array"
	case ChunkKindSparseArray:
		return "sparse-array"
	case ChunkKindTable:
		return "table"
	case ChunkKindSparseTable:
		return "sparse-table"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// hasTableHeader reports whether chunks of this kind carry a schema.
func (k ChunkKind) hasTableHeader() bool {
	return k == ChunkKindTable || k == ChunkKindSparseTable
}

// -----------------------------------------------------------------------------
// Chunk table
// -----------------------------------------------------------------------------

// Chunk is one decoded table chunk.
type Chunk struct {
	ID      ChunkID
	Kind    ChunkKind
	Schema  Schema
	Records []Record
}

// ChunkTable holds decoded chunks in the order they appeared in the stream.
type ChunkTable struct {
	chunks []*Chunk
	byID   map[ChunkID]int
}

// NewChunkTable returns an empty table.
func NewChunkTable() *ChunkTable {
	return &ChunkTable{byID: make(map[ChunkID]int)}
}

// put stores c. A chunk id that was already present keeps its position and
// has its contents replaced.
func (t *ChunkTable) put(c *Chunk) {
	if i, ok := t.byID[c.ID]; ok {
		t.chunks[i] = c
		return
	}
	t.byID[c.ID] = len(t.chunks)
	t.chunks = append(t.chunks, c)
}

// Get returns the chunk stored under id.
func (t *ChunkTable) Get(id ChunkID) (*Chunk, bool) {
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return t.chunks[i], true
}

// Records returns the records of chunk id, or nil when absent.
func (t *ChunkTable) Records(id ChunkID) []Record {
	if c, ok := t.Get(id); ok {
		return c.Records
	}
	return nil
}

// IDs returns the chunk ids in stream order.
func (t *ChunkTable) IDs() []ChunkID {
	ids := make([]ChunkID, len(t.chunks))
	for i, c := range t.chunks {
		ids[i] = c.ID
	}
	return ids
}

// Chunks returns the chunks in stream order.
func (t *ChunkTable) Chunks() []*Chunk {
	out := make([]*Chunk, len(t.chunks))
	copy(out, t.chunks)
	return out
}

// Len returns the number of chunks.
func (t *ChunkTable) Len() int { return len(t.chunks) }

// -----------------------------------------------------------------------------
// Store interface
// -----------------------------------------------------------------------------

// Store abstracts where savegames are read from and exports are written to.
//
// Implementations may target filesystems, S3, or other object stores.
type Store interface {
	// Put writes data to the given path.
	Put(ctx context.Context, path string, r io.Reader) error

	// Get retrieves data from the given path.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks whether a path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the path if it exists.
	Delete(ctx context.Context, path string) error
}

// -----------------------------------------------------------------------------
// Codec interface
// -----------------------------------------------------------------------------

// Codec serializes one decoded chunk for export.
type Codec interface {
	// Name returns the codec identifier (for example, "jsonl" or "parquet").
	Name() string

	// Extension returns the file extension (for example, ".jsonl").
	Extension() string

	// Encode writes the chunk's records to w.
	Encode(w io.Writer, c *Chunk) error
}

// -----------------------------------------------------------------------------
// Compressor interface
// -----------------------------------------------------------------------------

// Compressor handles compression and decompression of data streams.
//
// Savegame payloads are decompressed by the compressor matching their format
// tag; exports are compressed by the compressor chosen by the caller.
type Compressor interface {
	// Name returns the compressor identifier (for example, "zlib", "zstd", "noop").
	Name() string

	// Extension returns the file extension (for example, ".gz", ".zst", "").
	Extension() string

	// Compress wraps a writer with compression.
	Compress(w io.Writer) (io.WriteCloser, error)

	// Decompress wraps a reader with decompression.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values. Decoding failures wrap one of the first four, so
// callers classify them with errors.Is.
var (
	// ErrFormat indicates malformed savegame data: a bad gamma escape,
	// an unknown type tag or chunk type, or an empty schema block.
	ErrFormat = errors.New("savegame: malformed data")

	// ErrEncoding indicates a string field that is not valid UTF-8.
	ErrEncoding = errors.New("savegame: invalid utf-8 string")

	// ErrUnsupportedChunk indicates an array or sparse array chunk,
	// which carry no schema and cannot be decoded.
	ErrUnsupportedChunk = errors.New("savegame: unsupported chunk type")

	// ErrUnsupportedFormat indicates an unknown outer format tag.
	ErrUnsupportedFormat = errors.New("savegame: unsupported compression format")

	// ErrBitRange indicates a bit index beyond the width of the value.
	ErrBitRange = errors.New("savegame: bit index out of range")

	// ErrGammaRange indicates a value of 2^35 or more, which has no gamma
	// encoding.
	ErrGammaRange = errors.New("savegame: value too large for gamma encoding")

	// ErrNotFound indicates a requested path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPathExists indicates an attempt to write to an existing path.
	ErrPathExists = errors.New("path exists")
)

// DecodeError locates a decoding failure within the stream.
type DecodeError struct {
	// Chunk is the chunk being decoded, zero if the failure happened
	// while reading a chunk header.
	Chunk ChunkID

	// Field is the dotted key path of the field being decoded, if any.
	Field string

	// Offset is the number of decompressed bytes consumed when the
	// failure was detected.
	Offset int64

	Err error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("savegame: offset %d", e.Offset)
	if !e.Chunk.IsZero() {
		msg += fmt.Sprintf(": chunk %s", e.Chunk)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	return msg + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeErr wraps err with the source's current offset unless it already
// carries a location.
func decodeErr(src Source, field string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		if field != "" {
			if de.Field == "" {
				de.Field = field
			} else {
				de.Field = field + "." + de.Field
			}
		}
		return de
	}
	return &DecodeError{Field: field, Offset: src.Offset(), Err: err}
}
