package savegame

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
)

// skipBufSize is the scratch buffer used to discard RIFF payloads.
const skipBufSize = 4096

// chunkAIPL rows are followed by a flag byte that their schema does not
// declare.
var chunkAIPL = MustChunkID("AIPL")

// Load decodes every chunk of src until the end-of-stream sentinel.
//
// Table and sparse table chunks are decoded into the result, RIFF chunks
// are skipped by length, and array chunks fail with ErrUnsupportedChunk.
// Any failure aborts the load and no partial table is returned. Failures
// within the stream are reported as *DecodeError.
func Load(src Source, opts ...Option) (*ChunkTable, error) {
	cfg, err := newLoadConfig(opts)
	if err != nil {
		return nil, err
	}

	l := &loader{src: src, cfg: cfg, log: cfg.logger}
	table := NewChunkTable()
	for {
		var id ChunkID
		if err := src.ReadFull(id[:]); err != nil {
			return nil, decodeErr(src, "", err)
		}
		if id.IsZero() {
			break
		}

		chunk, err := l.readChunk(id)
		if err != nil {
			return nil, inChunk(err, id)
		}
		if chunk != nil && cfg.wants(id) {
			table.put(chunk)
		}
	}

	l.log.Debug("savegame loaded", "chunks", table.Len(), "position", src.Position())
	return table, nil
}

// loader decodes the chunks of one stream.
type loader struct {
	src Source
	cfg *loadConfig
	log *slog.Logger
	buf []byte
}

// readChunk decodes the chunk following id. Skipped chunks return nil.
func (l *loader) readChunk(id ChunkID) (*Chunk, error) {
	typ, err := l.src.ReadByte()
	if err != nil {
		return nil, decodeErr(l.src, "", err)
	}
	kind := ChunkKind(typ & kindMask)

	l.log.Debug("chunk",
		"id", id.String(),
		"name", chunkLabel(id),
		"kind", kind.String(),
		"position", l.src.Position(),
	)

	switch {
	case kind == ChunkKindRIFF:
		return nil, l.skipRIFF()
	case kind == ChunkKindArray, kind == ChunkKindSparseArray:
		return nil, decodeErr(l.src, "", fmt.Errorf("%w: %s chunk has no schema", ErrUnsupportedChunk, kind))
	case kind.hasTableHeader():
		return l.readTableChunk(id, kind)
	default:
		return nil, decodeErr(l.src, "", fmt.Errorf("%w: unknown chunk type byte %#02x", ErrFormat, typ))
	}
}

func (l *loader) readTableChunk(id ChunkID, kind ChunkKind) (*Chunk, error) {
	blockLen, err := l.src.ReadGamma()
	if err != nil {
		return nil, decodeErr(l.src, "", err)
	}
	if blockLen == 0 {
		return nil, decodeErr(l.src, "", fmt.Errorf("%w: empty schema block", ErrFormat))
	}

	start := l.src.Offset()
	schema, err := ReadSchema(l.src)
	if err != nil {
		return nil, err
	}
	if l.cfg.strict {
		if n := uint64(l.src.Offset() - start); n != blockLen-1 {
			return nil, decodeErr(l.src, "", fmt.Errorf(
				"%w: schema used %d bytes, length prefix says %d", ErrFormat, n, blockLen-1))
		}
	}
	schema = extendSchema(id, schema)

	records, err := readTable(l.src, schema, kind == ChunkKindSparseTable, l.cfg.strict)
	if err != nil {
		return nil, err
	}

	l.log.Debug("chunk decoded", "id", id.String(), "fields", len(schema), "records", len(records))
	return &Chunk{ID: id, Kind: kind, Schema: schema, Records: records}, nil
}

// extendSchema appends the fields some chunks store without declaring.
func extendSchema(id ChunkID, schema Schema) Schema {
	if id == chunkAIPL {
		extended := make(Schema, len(schema), len(schema)+1)
		copy(extended, schema)
		return append(extended, &FieldSchema{Key: "hasCustomData", Kind: KindU8})
	}
	return schema
}

// skipRIFF discards a RIFF payload. Its length is three big-endian bytes;
// the high nibble of the type byte plays no part in it.
func (l *loader) skipRIFF() error {
	var b [3]byte
	if err := l.src.ReadFull(b[:]); err != nil {
		return decodeErr(l.src, "", err)
	}
	n := int64(b[0])<<16 | int64(binary.BigEndian.Uint16(b[1:]))

	if l.buf == nil {
		l.buf = make([]byte, skipBufSize)
	}
	for n > 0 {
		k := min(n, int64(len(l.buf)))
		if err := l.src.ReadFull(l.buf[:k]); err != nil {
			return decodeErr(l.src, "", err)
		}
		n -= k
	}
	return nil
}

// inChunk records the chunk id on a decode error.
func inChunk(err error, id ChunkID) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Chunk.IsZero() {
		de.Chunk = id
	}
	return err
}

// -----------------------------------------------------------------------------
// Open
// -----------------------------------------------------------------------------

// Open reads the savegame stored at path: it parses the outer header,
// decompresses the payload and loads every chunk.
func Open(ctx context.Context, store Store, path string, opts ...Option) (*ChunkTable, *Header, error) {
	if store == nil {
		return nil, nil, errors.New("savegame: store is required")
	}

	rc, err := store.Get(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("savegame: open %s: %w", path, err)
	}
	defer func() { _ = rc.Close() }()

	src, err := NewStreamSource(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("savegame: open %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	table, err := Load(src, opts...)
	if err != nil {
		return nil, nil, err
	}
	h := src.Header()
	return table, &h, nil
}
