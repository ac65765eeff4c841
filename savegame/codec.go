package savegame

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// streamBufferSize is the buffer size of the JSON streams writing exports.
const streamBufferSize = 32 << 10

// CodecByName returns the export codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "json":
		return NewJSONCodec(), nil
	case "", "jsonl":
		return NewJSONLCodec(), nil
	case "parquet":
		return NewParquetCodec(), nil
	default:
		return nil, fmt.Errorf("savegame: unknown codec %q", name)
	}
}

// encodeStream writes to w through a json-iterator stream and flushes it.
func encodeStream(w io.Writer, write func(s *jsoniter.Stream)) error {
	s := jsoniter.NewStream(json, w, streamBufferSize)
	write(s)
	if s.Error != nil {
		return s.Error
	}
	return s.Flush()
}

// -----------------------------------------------------------------------------
// JSON Codec
// -----------------------------------------------------------------------------

// jsonCodec implements Codec as a single JSON array.
type jsonCodec struct{}

// NewJSONCodec creates a codec that writes a chunk as one JSON array of
// record objects, the same form ChunkTable.MarshalJSON uses per chunk.
func NewJSONCodec() Codec {
	return &jsonCodec{}
}

func (j *jsonCodec) Name() string      { return "json" }
func (j *jsonCodec) Extension() string { return ".json" }

func (j *jsonCodec) Encode(w io.Writer, c *Chunk) error {
	return encodeStream(w, func(s *jsoniter.Stream) {
		writeRecords(s, c.Records)
		s.WriteRaw("\n")
	})
}

// -----------------------------------------------------------------------------
// JSONL Codec
// -----------------------------------------------------------------------------

// jsonlCodec implements Codec using JSON Lines format.
type jsonlCodec struct{}

// NewJSONLCodec creates a JSONL (JSON Lines) codec.
//
// Each record is serialized as a single line of JSON.
func NewJSONLCodec() Codec {
	return &jsonlCodec{}
}

func (j *jsonlCodec) Name() string      { return "jsonl" }
func (j *jsonlCodec) Extension() string { return ".jsonl" }

func (j *jsonlCodec) Encode(w io.Writer, c *Chunk) error {
	return encodeStream(w, func(s *jsoniter.Stream) {
		for _, r := range c.Records {
			writeRecord(s, r)
			s.WriteRaw("\n")
			if s.Buffered() >= streamBufferSize {
				if err := s.Flush(); err != nil {
					return
				}
			}
		}
	})
}
