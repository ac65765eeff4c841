package savegame

import (
	"encoding/binary"
	"fmt"
)

// listPrealloc caps the capacity reserved up front for a repeated field.
const listPrealloc = 1024

// Decode reads one value of this field from src.
//
// A repeated field starts with a gamma element count. Repeated strings are
// the exception: the count is the byte length of a single string, so the
// field decodes to a one-element list, or an empty list for a zero count.
func (f *FieldSchema) Decode(src Source) (Field, error) {
	field := Field{Key: f.Key, Repeated: f.Repeated}

	if !f.Repeated {
		v, err := f.decodeOne(src)
		if err != nil {
			return Field{}, decodeErr(src, f.Key, err)
		}
		field.Value = v
		return field, nil
	}

	n, err := src.ReadGamma()
	if err != nil {
		return Field{}, decodeErr(src, f.Key, err)
	}

	if f.Kind == KindString {
		field.List = []Value{}
		if n > 0 {
			s, err := readText(src, n)
			if err != nil {
				return Field{}, decodeErr(src, f.Key, err)
			}
			field.List = append(field.List, String(s))
		}
		return field, nil
	}

	field.List = make([]Value, 0, min(n, listPrealloc))
	for i := uint64(0); i < n; i++ {
		v, err := f.decodeOne(src)
		if err != nil {
			return Field{}, decodeErr(src, fmt.Sprintf("%s[%d]", f.Key, i), err)
		}
		field.List = append(field.List, v)
	}
	return field, nil
}

func (f *FieldSchema) decodeOne(src Source) (Value, error) {
	if f.Kind == KindStruct {
		return decodeRecord(src, f.Fields, 0)
	}
	return readValue(src, f.Kind)
}

// decodeRecord decodes one record of schema.
func decodeRecord(src Source, schema Schema, index uint64) (Record, error) {
	rec := Record{Index: index, Fields: make([]Field, 0, len(schema))}
	for _, fs := range schema {
		f, err := fs.Decode(src)
		if err != nil {
			return Record{}, err
		}
		rec.Fields = append(rec.Fields, f)
	}
	return rec, nil
}

// readValue reads one fixed-width big-endian value of kind k.
func readValue(src Source, k Kind) (Value, error) {
	size := k.size()
	if size == 0 {
		return nil, fmt.Errorf("%w: %s is not valid as a scalar field", ErrFormat, k)
	}

	var buf [8]byte
	b := buf[:size]
	if err := src.ReadFull(b); err != nil {
		return nil, err
	}

	switch k {
	case KindI8:
		return I8(int8(b[0])), nil
	case KindU8:
		return U8(b[0]), nil
	case KindI16:
		return I16(int16(binary.BigEndian.Uint16(b))), nil
	case KindU16:
		return U16(binary.BigEndian.Uint16(b)), nil
	case KindStringID:
		return StringID(binary.BigEndian.Uint16(b)), nil
	case KindI32:
		return I32(int32(binary.BigEndian.Uint32(b))), nil
	case KindU32:
		return U32(binary.BigEndian.Uint32(b)), nil
	case KindI64:
		return I64(int64(binary.BigEndian.Uint64(b))), nil
	default:
		return U64(binary.BigEndian.Uint64(b)), nil
	}
}
