package savegame

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// IndexColumn is the parquet column holding Record.Index.
const IndexColumn = "_index"

// ParquetCompression specifies internal Parquet compression.
type ParquetCompression int

// Parquet compression options for internal file compression.
const (
	ParquetCompressionNone ParquetCompression = iota
	ParquetCompressionSnappy
	ParquetCompressionGzip
	ParquetCompressionZstd
)

// ParquetOption configures Parquet codec behavior.
type ParquetOption func(*parquetCodec)

// WithParquetCompression sets internal Parquet compression.
func WithParquetCompression(codec ParquetCompression) ParquetOption {
	return func(c *parquetCodec) {
		c.compression = codec
	}
}

// parquetCodec implements Codec for Apache Parquet format.
type parquetCodec struct {
	compression ParquetCompression
}

// NewParquetCodec creates a Parquet codec.
//
// The parquet schema is derived from each chunk's own schema: one column
// per top-level field plus IndexColumn. Integer kinds map to the matching
// signed or unsigned integer logical type and StringID to uint16. Repeated
// and struct fields are stored as their JSON text in a string column.
func NewParquetCodec(opts ...ParquetOption) Codec {
	c := &parquetCodec{compression: ParquetCompressionSnappy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *parquetCodec) Name() string      { return "parquet" }
func (c *parquetCodec) Extension() string { return ".parquet" }

func (c *parquetCodec) Encode(w io.Writer, chunk *Chunk) error {
	pqSchema, err := buildParquetSchema(chunk)
	if err != nil {
		return err
	}

	// parquet orders group columns by name.
	columns := make(map[string]int, len(chunk.Schema)+1)
	for i, f := range pqSchema.Fields() {
		columns[f.Name()] = i
	}

	rows := make([]parquet.Row, 0, len(chunk.Records))
	for _, rec := range chunk.Records {
		row, err := recordToRow(rec, chunk.Schema, columns)
		if err != nil {
			return fmt.Errorf("parquet: chunk %s record %d: %w", chunk.ID, rec.Index, err)
		}
		rows = append(rows, row)
	}

	pqWriter := parquet.NewWriter(w, pqSchema, c.compressionOption())
	if _, err := pqWriter.WriteRows(rows); err != nil {
		_ = pqWriter.Close()
		return fmt.Errorf("parquet: write rows: %w", err)
	}
	if err := pqWriter.Close(); err != nil {
		return fmt.Errorf("parquet: close writer: %w", err)
	}
	return nil
}

func (c *parquetCodec) compressionOption() parquet.WriterOption {
	switch c.compression {
	case ParquetCompressionSnappy:
		return parquet.Compression(&parquet.Snappy)
	case ParquetCompressionGzip:
		return parquet.Compression(&parquet.Gzip)
	case ParquetCompressionZstd:
		return parquet.Compression(&parquet.Zstd)
	default:
		return parquet.Compression(&parquet.Uncompressed)
	}
}

// buildParquetSchema creates a parquet-go schema for the chunk's records.
func buildParquetSchema(chunk *Chunk) (*parquet.Schema, error) {
	group := make(parquet.Group, len(chunk.Schema)+1)
	group[IndexColumn] = parquet.Uint(64)
	for _, f := range chunk.Schema {
		if _, dup := group[f.Key]; dup {
			return nil, fmt.Errorf("parquet: chunk %s: duplicate column %q", chunk.ID, f.Key)
		}
		group[f.Key] = fieldNode(f)
	}
	return parquet.NewSchema(chunk.ID.String(), group), nil
}

func fieldNode(f *FieldSchema) parquet.Node {
	if f.Repeated {
		return parquet.String()
	}
	switch f.Kind {
	case KindI8:
		return parquet.Int(8)
	case KindI16:
		return parquet.Int(16)
	case KindI32:
		return parquet.Int(32)
	case KindI64:
		return parquet.Int(64)
	case KindU8:
		return parquet.Uint(8)
	case KindU16, KindStringID:
		return parquet.Uint(16)
	case KindU32:
		return parquet.Uint(32)
	case KindU64:
		return parquet.Uint(64)
	default:
		return parquet.String()
	}
}

// recordToRow converts a record to a parquet Row in column order.
func recordToRow(rec Record, schema Schema, columns map[string]int) (parquet.Row, error) {
	row := make(parquet.Row, len(columns))
	col := columns[IndexColumn]
	row[col] = parquet.Int64Value(int64(rec.Index)).Level(0, 0, col)

	for i, fs := range schema {
		if i >= len(rec.Fields) || rec.Fields[i].Key != fs.Key {
			return nil, fmt.Errorf("field %q missing", fs.Key)
		}
		v, err := fieldValue(rec.Fields[i], fs)
		if err != nil {
			return nil, err
		}
		col := columns[fs.Key]
		row[col] = v.Level(0, 0, col)
	}
	return row, nil
}

func fieldValue(f Field, fs *FieldSchema) (parquet.Value, error) {
	if f.Repeated || fs.Kind == KindStruct || fs.Kind == KindString {
		text, err := f.MarshalJSON()
		if err != nil {
			return parquet.Value{}, fmt.Errorf("field %q: %w", f.Key, err)
		}
		return parquet.ByteArrayValue(text), nil
	}

	if n, ok := Int(f.Value); ok {
		if fs.Kind == KindI64 {
			return parquet.Int64Value(n), nil
		}
		return parquet.Int32Value(int32(n)), nil
	}
	if n, ok := Uint(f.Value); ok {
		if fs.Kind == KindU64 {
			return parquet.Int64Value(int64(n)), nil
		}
		return parquet.Int32Value(int32(uint32(n))), nil
	}
	return parquet.Value{}, fmt.Errorf("field %q: %T does not match kind %s", f.Key, f.Value, fs.Kind)
}
