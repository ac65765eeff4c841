package savegame

import "fmt"

// ReadTable reads a dense table of schema records up to and including its
// zero terminator.
//
// Each entry is prefixed by a gamma length L that counts the payload plus
// one. An entry with no payload is an empty slot: it is skipped but still
// advances Record.Index.
func ReadTable(src Source, schema Schema) ([]Record, error) {
	return readTable(src, schema, false, false)
}

// ReadSparseTable is like ReadTable, except that every entry carries an
// explicit gamma index after its length and always decodes a record.
// Indexes need not be contiguous.
func ReadSparseTable(src Source, schema Schema) ([]Record, error) {
	return readTable(src, schema, true, false)
}

// readTable implements both table layouts. With strict set, every entry
// must consume exactly the bytes its length prefix announces.
func readTable(src Source, schema Schema, sparse, strict bool) ([]Record, error) {
	var records []Record
	for slot := uint64(0); ; slot++ {
		length, err := src.ReadGamma()
		if err != nil {
			return nil, decodeErr(src, "", err)
		}
		if length == 0 {
			return records, nil
		}
		length--
		if !sparse && length == 0 {
			continue
		}

		start := src.Offset()
		index := slot
		if sparse {
			if index, err = src.ReadGamma(); err != nil {
				return nil, decodeErr(src, "", err)
			}
		}

		rec, err := decodeRecord(src, schema, index)
		if err != nil {
			return nil, err
		}
		if strict {
			if n := uint64(src.Offset() - start); n != length {
				return nil, decodeErr(src, "", fmt.Errorf(
					"%w: entry %d used %d bytes, length prefix says %d", ErrFormat, index, n, length))
			}
		}
		records = append(records, rec)
	}
}
