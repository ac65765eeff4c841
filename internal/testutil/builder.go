package testutil

import (
	"encoding/binary"
	"fmt"
)

// Field type bytes as they appear in a table schema.
const (
	TypeEnd byte = iota
	TypeI8
	TypeU8
	TypeI16
	TypeU16
	TypeI32
	TypeU32
	TypeI64
	TypeU64
	TypeStringID
	TypeString
	TypeStruct

	// Repeated is OR'd into a type byte to mark a list field.
	Repeated byte = 0x10
)

// Chunk type bytes.
const (
	ChunkRIFF byte = iota
	ChunkArray
	ChunkSparseArray
	ChunkTable
	ChunkSparseTable
)

// Builder assembles savegame bytes for tests. Every method appends to the
// buffer and returns the builder, so fixtures read top to bottom:
//
//	b := testutil.NewBuilder().
//		Table("DEMO", schema, entry).
//		End()
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// Bytes returns the assembled bytes.
func (b *Builder) Bytes() []byte { return b.buf }

// Len returns the number of bytes assembled so far.
func (b *Builder) Len() int { return len(b.buf) }

// Raw appends p unchanged.
func (b *Builder) Raw(p ...byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// Gamma appends v in its shortest gamma encoding.
func (b *Builder) Gamma(v uint64) *Builder {
	b.buf = AppendGamma(b.buf, v)
	return b
}

// String appends a gamma length and the bytes of s.
func (b *Builder) String(s string) *Builder {
	return b.Gamma(uint64(len(s))).Raw([]byte(s)...)
}

// U8 appends one byte.
func (b *Builder) U8(v uint8) *Builder { return b.Raw(v) }

// U16 appends v big-endian.
func (b *Builder) U16(v uint16) *Builder {
	b.buf = binary.BigEndian.AppendUint16(b.buf, v)
	return b
}

// U32 appends v big-endian.
func (b *Builder) U32(v uint32) *Builder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
	return b
}

// U64 appends v big-endian.
func (b *Builder) U64(v uint64) *Builder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, v)
	return b
}

// Field appends one schema entry.
func (b *Builder) Field(typ byte, key string) *Builder {
	return b.Raw(typ).String(key)
}

// EndSchema appends the schema terminator.
func (b *Builder) EndSchema() *Builder { return b.Raw(TypeEnd) }

// Header appends an outer savegame header.
func (b *Builder) Header(tag string, version uint16) *Builder {
	if len(tag) != 4 {
		panic(fmt.Sprintf("testutil: format tag %q must be 4 bytes", tag))
	}
	return b.Raw([]byte(tag)...).U16(version).Raw(0, 0)
}

// ChunkID appends a 4-byte chunk id.
func (b *Builder) ChunkID(id string) *Builder {
	if len(id) != 4 {
		panic(fmt.Sprintf("testutil: chunk id %q must be 4 bytes", id))
	}
	return b.Raw([]byte(id)...)
}

// Table appends a dense table chunk. Each entry is one encoded record;
// a nil entry is an empty slot.
func (b *Builder) Table(id string, schema []byte, entries ...[]byte) *Builder {
	return b.table(id, ChunkTable, schema, entries)
}

// SparseTable appends a sparse table chunk. Entries must start with their
// gamma index; see SparseEntry.
func (b *Builder) SparseTable(id string, schema []byte, entries ...[]byte) *Builder {
	return b.table(id, ChunkSparseTable, schema, entries)
}

func (b *Builder) table(id string, typ byte, schema []byte, entries [][]byte) *Builder {
	b.ChunkID(id).Raw(typ)
	b.Gamma(uint64(len(schema)) + 1).Raw(schema...)
	for _, e := range entries {
		b.Gamma(uint64(len(e)) + 1).Raw(e...)
	}
	return b.Gamma(0)
}

// SparseEntry prefixes payload with its gamma index.
func SparseEntry(index uint64, payload []byte) []byte {
	return append(AppendGamma(nil, index), payload...)
}

// RIFF appends a RIFF chunk carrying payload.
func (b *Builder) RIFF(id string, payload []byte) *Builder {
	n := len(payload)
	if n >= 1<<24 {
		panic("testutil: RIFF payload too large")
	}
	b.ChunkID(id).Raw(ChunkRIFF)
	return b.Raw(byte(n>>16)).U16(uint16(n)).Raw(payload...)
}

// End appends the end-of-stream sentinel.
func (b *Builder) End() *Builder { return b.Raw(0, 0, 0, 0) }

// AppendGamma appends the shortest gamma encoding of v to dst.
func AppendGamma(dst []byte, v uint64) []byte {
	switch {
	case v < 1<<7:
		return append(dst, byte(v))
	case v < 1<<14:
		return append(dst, 0x80|byte(v>>8), byte(v))
	case v < 1<<21:
		return append(dst, 0xC0|byte(v>>16), byte(v>>8), byte(v))
	case v < 1<<28:
		return append(dst, 0xE0|byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	default:
		return append(dst, 0xF0|byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}
