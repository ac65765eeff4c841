package savegame

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"reflect"
	"testing"

	"github.com/justapithecus/savegame/internal/testutil"
)

// encodeRecord is the inverse of decodeRecord, used to check that decoding
// reproduces every value exactly.
func encodeRecord(t *testing.T, dst []byte, schema Schema, rec Record) []byte {
	t.Helper()
	if len(schema) != len(rec.Fields) {
		t.Fatalf("record has %d fields, schema %d", len(rec.Fields), len(schema))
	}
	for i, fs := range schema {
		f := rec.Fields[i]
		if !fs.Repeated {
			dst = encodeValue(t, dst, fs, f.Value)
			continue
		}
		if fs.Kind == KindString {
			switch len(f.List) {
			case 0:
				dst = appendGamma(t, dst, 0)
			case 1:
				s := string(f.List[0].(String))
				dst = append(appendGamma(t, dst, uint64(len(s))), s...)
			default:
				t.Fatalf("field %q: repeated strings hold at most one element", fs.Key)
			}
			continue
		}
		dst = appendGamma(t, dst, uint64(len(f.List)))
		for _, v := range f.List {
			dst = encodeValue(t, dst, fs, v)
		}
	}
	return dst
}

func appendGamma(t *testing.T, dst []byte, v uint64) []byte {
	t.Helper()
	dst, err := AppendGamma(dst, v)
	if err != nil {
		t.Fatalf("AppendGamma failed: %v", err)
	}
	return dst
}

func encodeValue(t *testing.T, dst []byte, fs *FieldSchema, v Value) []byte {
	t.Helper()
	switch x := v.(type) {
	case I8:
		return append(dst, byte(x))
	case U8:
		return append(dst, byte(x))
	case I16:
		return binary.BigEndian.AppendUint16(dst, uint16(x))
	case U16:
		return binary.BigEndian.AppendUint16(dst, uint16(x))
	case StringID:
		return binary.BigEndian.AppendUint16(dst, uint16(x))
	case I32:
		return binary.BigEndian.AppendUint32(dst, uint32(x))
	case U32:
		return binary.BigEndian.AppendUint32(dst, uint32(x))
	case I64:
		return binary.BigEndian.AppendUint64(dst, uint64(x))
	case U64:
		return binary.BigEndian.AppendUint64(dst, uint64(x))
	case Record:
		return encodeRecord(t, dst, fs.Fields, x)
	default:
		t.Fatalf("field %q: cannot encode %T", fs.Key, v)
		return nil
	}
}

func scalar(key string, v Value) Field { return Field{Key: key, Value: v} }

func list(key string, vs ...Value) Field {
	return Field{Key: key, Repeated: true, List: append([]Value{}, vs...)}
}

func TestFieldSchema_Decode_Scalars(t *testing.T) {
	tests := []struct {
		kind Kind
		in   []byte
		want Value
	}{
		{KindI8, []byte{0xFF}, I8(-1)},
		{KindU8, []byte{0xFF}, U8(255)},
		{KindI16, []byte{0xFF, 0xFE}, I16(-2)},
		{KindU16, []byte{0x01, 0x02}, U16(0x0102)},
		{KindStringID, []byte{0x12, 0x34}, StringID(0x1234)},
		{KindI32, []byte{0x80, 0, 0, 0}, I32(math.MinInt32)},
		{KindU32, []byte{0xDE, 0xAD, 0xBE, 0xEF}, U32(0xDEADBEEF)},
		{KindI64, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, I64(-1)},
		{KindU64, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, U64(math.MaxUint64)},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			fs := &FieldSchema{Key: "v", Kind: tt.kind}
			f, err := fs.Decode(seekSource(t, tt.in))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if f.Value != tt.want {
				t.Errorf("Decode = %#v, want %#v", f.Value, tt.want)
			}
			if f.Value.Kind() != tt.kind {
				t.Errorf("Kind = %s, want %s", f.Value.Kind(), tt.kind)
			}
		})
	}
}

func TestFieldSchema_Decode_ScalarStringRejected(t *testing.T) {
	fs := &FieldSchema{Key: "name", Kind: KindString}
	data := testutil.NewBuilder().String("abc").Bytes()
	_, err := fs.Decode(seekSource(t, data))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got: %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "name" {
		t.Errorf("expected DecodeError naming %q, got: %v", "name", err)
	}
}

func TestFieldSchema_Decode_RepeatedString(t *testing.T) {
	fs := &FieldSchema{Key: "name", Kind: KindString, Repeated: true}

	f, err := fs.Decode(seekSource(t, testutil.NewBuilder().String("Tsarburg").Bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(f.List, []Value{String("Tsarburg")}) {
		t.Errorf("List = %#v", f.List)
	}

	f, err = fs.Decode(seekSource(t, []byte{0}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.List == nil || len(f.List) != 0 {
		t.Errorf("zero length: List = %#v, want empty", f.List)
	}
}

func TestFieldSchema_Decode_RepeatedValues(t *testing.T) {
	fs := &FieldSchema{Key: "xs", Kind: KindU16, Repeated: true}
	data := testutil.NewBuilder().Gamma(3).U16(1).U16(2).U16(3).Bytes()
	f, err := fs.Decode(seekSource(t, data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []Value{U16(1), U16(2), U16(3)}
	if !reflect.DeepEqual(f.List, want) {
		t.Errorf("List = %#v, want %#v", f.List, want)
	}
}

func TestFieldSchema_Decode_ListErrorNamesElement(t *testing.T) {
	fs := &FieldSchema{Key: "xs", Kind: KindU32, Repeated: true}
	data := testutil.NewBuilder().Gamma(2).U32(1).Raw(0, 0).Bytes()
	_, err := fs.Decode(seekSource(t, data))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got: %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "xs[1]" {
		t.Errorf("expected field %q, got: %v", "xs[1]", err)
	}
}

func TestFieldSchema_Decode_NestedErrorPath(t *testing.T) {
	fs := &FieldSchema{Key: "outer", Kind: KindStruct, Fields: Schema{
		{Key: "inner", Kind: KindStruct, Fields: Schema{
			{Key: "leaf", Kind: KindU64},
		}},
	}}
	_, err := fs.Decode(seekSource(t, []byte{1, 2, 3}))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got: %v", err)
	}
	if de.Field != "outer.inner.leaf" {
		t.Errorf("Field = %q", de.Field)
	}
	if de.Offset != 3 {
		t.Errorf("Offset = %d, want 3", de.Offset)
	}
}

func TestDecodeRecord_RoundTrip(t *testing.T) {
	point := Schema{
		{Key: "x", Kind: KindI32},
		{Key: "y", Kind: KindI32},
	}
	schema := Schema{
		{Key: "i8", Kind: KindI8},
		{Key: "u8", Kind: KindU8},
		{Key: "i16", Kind: KindI16},
		{Key: "u16", Kind: KindU16},
		{Key: "i32", Kind: KindI32},
		{Key: "u32", Kind: KindU32},
		{Key: "i64", Kind: KindI64},
		{Key: "u64", Kind: KindU64},
		{Key: "sid", Kind: KindStringID},
		{Key: "name", Kind: KindString, Repeated: true},
		{Key: "none", Kind: KindString, Repeated: true},
		{Key: "ids", Kind: KindU32, Repeated: true},
		{Key: "empty", Kind: KindI64, Repeated: true},
		{Key: "at", Kind: KindStruct, Fields: point},
		{Key: "path", Kind: KindStruct, Repeated: true, Fields: point},
	}
	pt := func(x, y int32) Record {
		return Record{Fields: []Field{scalar("x", I32(x)), scalar("y", I32(y))}}
	}
	want := Record{Index: 0, Fields: []Field{
		scalar("i8", I8(math.MinInt8)),
		scalar("u8", U8(math.MaxUint8)),
		scalar("i16", I16(math.MinInt16)),
		scalar("u16", U16(math.MaxUint16)),
		scalar("i32", I32(-123456)),
		scalar("u32", U32(math.MaxUint32)),
		scalar("i64", I64(math.MinInt64)),
		scalar("u64", U64(math.MaxUint64)),
		scalar("sid", StringID(0xF00D)),
		list("name", String("Łódź station")),
		list("none"),
		list("ids", U32(7), U32(0), U32(1<<31)),
		list("empty"),
		scalar("at", pt(-5, 9)),
		list("path", pt(0, 0), pt(1, -1), pt(math.MaxInt32, math.MinInt32)),
	}}

	data := encodeRecord(t, nil, schema, want)
	src := seekSource(t, data)
	got, err := decodeRecord(src, schema, 0)
	if err != nil {
		t.Fatalf("decodeRecord failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, want)
	}
	if src.Offset() != int64(len(data)) {
		t.Errorf("consumed %d of %d bytes", src.Offset(), len(data))
	}
}

func TestRecord_Get(t *testing.T) {
	r := Record{Fields: []Field{scalar("a", U8(1)), list("b", U8(2))}}
	if f, ok := r.Get("b"); !ok || !f.Repeated {
		t.Errorf("Get(b) = %+v, %v", f, ok)
	}
	if _, ok := r.Get("c"); ok {
		t.Error("Get(c) found a field")
	}
}

func TestValue_IntUint(t *testing.T) {
	if n, ok := Int(I16(-7)); !ok || n != -7 {
		t.Errorf("Int(I16(-7)) = %d, %v", n, ok)
	}
	if _, ok := Int(U8(1)); ok {
		t.Error("Int accepted an unsigned value")
	}
	if n, ok := Uint(StringID(42)); !ok || n != 42 {
		t.Errorf("Uint(StringID(42)) = %d, %v", n, ok)
	}
	if _, ok := Uint(String("x")); ok {
		t.Error("Uint accepted a string")
	}
}
