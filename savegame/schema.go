package savegame

import "fmt"

// Kind is the primitive type of a schema field, stored in the low nibble of
// the field's type byte.
type Kind uint8

// Field kinds as they appear on the wire. KindEnd terminates a schema and
// never describes a field.
const (
	KindEnd Kind = iota
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindStringID
	KindString
	KindStruct
	kindMax
)

const (
	kindMask    = 0x0F
	repeatedBit = 4

	maxSchemaDepth  = 64
	maxSchemaFields = 1 << 16
)

var kindNames = [...]string{
	KindEnd:      "end",
	KindI8:       "i8",
	KindU8:       "u8",
	KindI16:      "i16",
	KindU16:      "u16",
	KindI32:      "i32",
	KindU32:      "u32",
	KindI64:      "i64",
	KindU64:      "u64",
	KindStringID: "stringid",
	KindString:   "string",
	KindStruct:   "struct",
}

func (k Kind) String() string {
	if k < kindMax {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// size returns the encoded width of a fixed-size kind, or 0.
func (k Kind) size() int {
	switch k {
	case KindI8, KindU8:
		return 1
	case KindI16, KindU16, KindStringID:
		return 2
	case KindI32, KindU32:
		return 4
	case KindI64, KindU64:
		return 8
	default:
		return 0
	}
}

// FieldSchema describes one field of a table chunk.
type FieldSchema struct {
	Key  string
	Kind Kind

	// Repeated fields are prefixed by a gamma element count.
	Repeated bool

	// Fields is the nested schema of a struct field.
	Fields Schema
}

// Schema is an ordered list of fields. A schema is built once per chunk
// and shared read-only by every record decoded from it.
type Schema []*FieldSchema

// ReadSchema reads a schema from src.
//
// On the wire a schema is its flat field list, terminated by a zero type
// byte, followed by the nested schemas of its struct fields in declaration
// order. The flat list is therefore read completely before any nested
// schema.
func ReadSchema(src Source) (Schema, error) {
	return readSchema(src, 0)
}

func readSchema(src Source, depth int) (Schema, error) {
	if depth > maxSchemaDepth {
		return nil, decodeErr(src, "", fmt.Errorf("%w: schema nesting too deep", ErrFormat))
	}

	var fields Schema
	for {
		b, err := src.ReadByte()
		if err != nil {
			return nil, decodeErr(src, "", err)
		}
		kind := Kind(b & kindMask)
		if kind == KindEnd {
			break
		}
		if kind >= kindMax {
			return nil, decodeErr(src, "", fmt.Errorf("%w: unknown field type byte %#02x", ErrFormat, b))
		}
		repeated, err := HasBit(uint64(b), repeatedBit)
		if err != nil {
			return nil, decodeErr(src, "", err)
		}
		key, err := src.ReadString()
		if err != nil {
			return nil, decodeErr(src, "", err)
		}
		if len(fields) == maxSchemaFields {
			return nil, decodeErr(src, key, fmt.Errorf("%w: more than %d fields in schema", ErrFormat, maxSchemaFields))
		}
		fields = append(fields, &FieldSchema{Key: key, Kind: kind, Repeated: repeated})
	}

	for _, f := range fields {
		if f.Kind != KindStruct {
			continue
		}
		nested, err := readSchema(src, depth+1)
		if err != nil {
			return nil, decodeErr(src, f.Key, err)
		}
		f.Fields = nested
	}
	return fields, nil
}

// Field returns the schema entry for key.
func (s Schema) Field(key string) (*FieldSchema, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return nil, false
}
