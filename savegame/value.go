package savegame

import (
	jsoniter "github.com/json-iterator/go"
)

// Value is one decoded field value. The concrete type always matches the
// field's Kind: I8 through U64 for integers, StringID for string table
// references, String for text and Record for nested structs.
type Value interface {
	Kind() Kind
	writeJSON(s *jsoniter.Stream)
}

type (
	I8       int8
	U8       uint8
	I16      int16
	U16      uint16
	I32      int32
	U32      uint32
	I64      int64
	U64      uint64
	StringID uint16
	String   string
)

func (I8) Kind() Kind       { return KindI8 }
func (U8) Kind() Kind       { return KindU8 }
func (I16) Kind() Kind      { return KindI16 }
func (U16) Kind() Kind      { return KindU16 }
func (I32) Kind() Kind      { return KindI32 }
func (U32) Kind() Kind      { return KindU32 }
func (I64) Kind() Kind      { return KindI64 }
func (U64) Kind() Kind      { return KindU64 }
func (StringID) Kind() Kind { return KindStringID }
func (String) Kind() Kind   { return KindString }
func (Record) Kind() Kind   { return KindStruct }

func (v I8) writeJSON(s *jsoniter.Stream)       { s.WriteInt8(int8(v)) }
func (v U8) writeJSON(s *jsoniter.Stream)       { s.WriteUint8(uint8(v)) }
func (v I16) writeJSON(s *jsoniter.Stream)      { s.WriteInt16(int16(v)) }
func (v U16) writeJSON(s *jsoniter.Stream)      { s.WriteUint16(uint16(v)) }
func (v I32) writeJSON(s *jsoniter.Stream)      { s.WriteInt32(int32(v)) }
func (v U32) writeJSON(s *jsoniter.Stream)      { s.WriteUint32(uint32(v)) }
func (v I64) writeJSON(s *jsoniter.Stream)      { s.WriteInt64(int64(v)) }
func (v U64) writeJSON(s *jsoniter.Stream)      { s.WriteUint64(uint64(v)) }
func (v StringID) writeJSON(s *jsoniter.Stream) { s.WriteUint16(uint16(v)) }
func (v String) writeJSON(s *jsoniter.Stream)   { s.WriteString(string(v)) }
func (r Record) writeJSON(s *jsoniter.Stream)   { writeRecord(s, r) }

// Int returns v as a signed integer if v is one of the signed kinds.
func Int(v Value) (int64, bool) {
	switch x := v.(type) {
	case I8:
		return int64(x), true
	case I16:
		return int64(x), true
	case I32:
		return int64(x), true
	case I64:
		return int64(x), true
	}
	return 0, false
}

// Uint returns v as an unsigned integer if v is one of the unsigned kinds
// or a StringID.
func Uint(v Value) (uint64, bool) {
	switch x := v.(type) {
	case U8:
		return uint64(x), true
	case U16:
		return uint64(x), true
	case U32:
		return uint64(x), true
	case U64:
		return uint64(x), true
	case StringID:
		return uint64(x), true
	}
	return 0, false
}

// Field is one decoded field of a record. Scalar fields set Value;
// repeated fields set List, which is non-nil even when empty.
type Field struct {
	Key      string
	Repeated bool
	Value    Value
	List     []Value
}

// Values returns the field's values as a list, wrapping a scalar value.
func (f Field) Values() []Value {
	if f.Repeated {
		return f.List
	}
	return []Value{f.Value}
}

// Record is one decoded row: its fields in schema order.
type Record struct {
	// Index is the slot number in a dense table or the explicit index in a
	// sparse table. Nested records have index 0. It is not part of the
	// JSON form.
	Index  uint64
	Fields []Field
}

// Get returns the field named key.
func (r Record) Get(key string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// -----------------------------------------------------------------------------
// JSON
// -----------------------------------------------------------------------------

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func writeRecord(s *jsoniter.Stream, r Record) {
	s.WriteObjectStart()
	for i, f := range r.Fields {
		if i > 0 {
			s.WriteMore()
		}
		s.WriteObjectField(f.Key)
		writeField(s, f)
	}
	s.WriteObjectEnd()
}

func writeField(s *jsoniter.Stream, f Field) {
	if !f.Repeated {
		if f.Value == nil {
			s.WriteNil()
			return
		}
		f.Value.writeJSON(s)
		return
	}
	s.WriteArrayStart()
	for i, v := range f.List {
		if i > 0 {
			s.WriteMore()
		}
		v.writeJSON(s)
	}
	s.WriteArrayEnd()
}

func writeRecords(s *jsoniter.Stream, records []Record) {
	s.WriteArrayStart()
	for i, r := range records {
		if i > 0 {
			s.WriteMore()
		}
		writeRecord(s, r)
	}
	s.WriteArrayEnd()
}

// marshalStream runs write against a pooled stream and returns a copy of
// the produced bytes.
func marshalStream(write func(s *jsoniter.Stream)) ([]byte, error) {
	s := json.BorrowStream(nil)
	defer json.ReturnStream(s)
	write(s)
	if s.Error != nil {
		return nil, s.Error
	}
	return append([]byte(nil), s.Buffer()...), nil
}

// MarshalJSON encodes the record as an object with keys in schema order.
func (r Record) MarshalJSON() ([]byte, error) {
	return marshalStream(func(s *jsoniter.Stream) { writeRecord(s, r) })
}

// MarshalJSON encodes the field's value, or its list as an array.
func (f Field) MarshalJSON() ([]byte, error) {
	return marshalStream(func(s *jsoniter.Stream) { writeField(s, f) })
}

// MarshalJSON encodes the table as an object mapping each chunk id to its
// array of records, in stream order.
func (t *ChunkTable) MarshalJSON() ([]byte, error) {
	return marshalStream(func(s *jsoniter.Stream) {
		s.WriteObjectStart()
		for i, c := range t.chunks {
			if i > 0 {
				s.WriteMore()
			}
			s.WriteObjectField(c.ID.String())
			writeRecords(s, c.Records)
		}
		s.WriteObjectEnd()
	})
}
