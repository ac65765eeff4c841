package savegame

import (
	"errors"
	"testing"

	"github.com/justapithecus/savegame/internal/testutil"
)

func TestReadSchema_Flat(t *testing.T) {
	data := testutil.NewBuilder().
		Field(testutil.TypeU16, "a").
		Field(testutil.TypeI32|testutil.Repeated, "b").
		EndSchema().
		Bytes()

	schema, err := ReadSchema(seekSource(t, data))
	if err != nil {
		t.Fatalf("ReadSchema failed: %v", err)
	}
	if len(schema) != 2 {
		t.Fatalf("got %d fields, want 2", len(schema))
	}
	if f := schema[0]; f.Key != "a" || f.Kind != KindU16 || f.Repeated {
		t.Errorf("field 0 = %+v", f)
	}
	if f := schema[1]; f.Key != "b" || f.Kind != KindI32 || !f.Repeated {
		t.Errorf("field 1 = %+v", f)
	}
}

func TestReadSchema_Empty(t *testing.T) {
	schema, err := ReadSchema(seekSource(t, []byte{0}))
	if err != nil {
		t.Fatalf("ReadSchema failed: %v", err)
	}
	if len(schema) != 0 {
		t.Errorf("got %d fields, want 0", len(schema))
	}
}

func TestReadSchema_NestedAfterFlatList(t *testing.T) {
	// Flat list first, then the nested schemas of s1 and s2 in order, then
	// the nested schema of s1's own struct field.
	data := testutil.NewBuilder().
		Field(testutil.TypeStruct, "s1").
		Field(testutil.TypeU8, "x").
		Field(testutil.TypeStruct|testutil.Repeated, "s2").
		EndSchema().
		// s1
		Field(testutil.TypeI8, "a").
		Field(testutil.TypeStruct, "inner").
		EndSchema().
		// s1.inner
		Field(testutil.TypeU64, "deep").
		EndSchema().
		// s2
		Field(testutil.TypeString|testutil.Repeated, "name").
		EndSchema().
		Bytes()

	src := seekSource(t, data)
	schema, err := ReadSchema(src)
	if err != nil {
		t.Fatalf("ReadSchema failed: %v", err)
	}
	if src.Offset() != int64(len(data)) {
		t.Errorf("consumed %d of %d bytes", src.Offset(), len(data))
	}

	s1, ok := schema.Field("s1")
	if !ok || len(s1.Fields) != 2 {
		t.Fatalf("s1 = %+v", s1)
	}
	inner, ok := s1.Fields.Field("inner")
	if !ok || len(inner.Fields) != 1 || inner.Fields[0].Key != "deep" || inner.Fields[0].Kind != KindU64 {
		t.Errorf("s1.inner = %+v", inner)
	}
	s2, ok := schema.Field("s2")
	if !ok || !s2.Repeated || len(s2.Fields) != 1 || s2.Fields[0].Kind != KindString {
		t.Errorf("s2 = %+v", s2)
	}
	if x, _ := schema.Field("x"); x.Fields != nil {
		t.Errorf("scalar field has nested schema: %+v", x)
	}
}

func TestReadSchema_UnknownType(t *testing.T) {
	for _, typ := range []byte{0x0C, 0x0D, 0x0E, 0x0F, 0x1F} {
		data := testutil.NewBuilder().Field(typ, "bad").EndSchema().Bytes()
		_, err := ReadSchema(seekSource(t, data))
		if !errors.Is(err, ErrFormat) {
			t.Errorf("type %#x: expected ErrFormat, got: %v", typ, err)
		}
	}
}

func TestReadSchema_Truncated(t *testing.T) {
	data := testutil.NewBuilder().Field(testutil.TypeU8, "a").Bytes()
	_, err := ReadSchema(seekSource(t, data))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got: %v", err)
	}
	if de.Offset != int64(len(data)) {
		t.Errorf("Offset = %d, want %d", de.Offset, len(data))
	}
}

func TestReadSchema_NestedErrorNamesField(t *testing.T) {
	data := testutil.NewBuilder().
		Field(testutil.TypeStruct, "outer").
		EndSchema().
		Field(0x0E, "bad").
		Bytes()
	_, err := ReadSchema(seekSource(t, data))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got: %v", err)
	}
	if de.Field != "outer" {
		t.Errorf("Field = %q, want %q", de.Field, "outer")
	}
}

func TestKind_String(t *testing.T) {
	if KindStringID.String() != "stringid" {
		t.Errorf("KindStringID = %q", KindStringID)
	}
	if Kind(14).String() != "kind(14)" {
		t.Errorf("Kind(14) = %q", Kind(14))
	}
}
