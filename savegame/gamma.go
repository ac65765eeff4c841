package savegame

import (
	"fmt"
	"io"
)

// gammaEscapeBits are the escape bits of a gamma lead byte, highest first.
// Each set bit announces one more length byte.
var gammaEscapeBits = [...]uint{7, 6, 5, 4}

// ReadGamma decodes one gamma-encoded unsigned integer.
//
// The lead byte's high bits form a unary prefix: for every leading set bit
// among bits 7..4 one further byte follows, and the value is the remaining
// low bits of the lead byte followed by those bytes, big-endian. A lead byte
// with bits 7..3 all set is malformed.
func ReadGamma(r io.ByteReader) (uint64, error) {
	lead, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	v := uint64(lead)
	extra := 0
	for _, bit := range gammaEscapeBits {
		set, err := HasBit(v, bit)
		if err != nil {
			return 0, err
		}
		if !set {
			break
		}
		v &^= 1 << bit
		extra++
	}
	if extra == len(gammaEscapeBits) {
		if v&(1<<3) != 0 {
			return 0, fmt.Errorf("%w: gamma lead byte %#08b has a fifth escape bit", ErrFormat, lead)
		}
	}

	for i := 0; i < extra; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// AppendGamma appends the shortest gamma encoding of v to dst. Values of
// 2^35 and above have no encoding and fail with ErrGammaRange, leaving dst
// unchanged.
func AppendGamma(dst []byte, v uint64) ([]byte, error) {
	switch {
	case v < 1<<7:
		return append(dst, byte(v)), nil
	case v < 1<<14:
		return append(dst, 0x80|byte(v>>8), byte(v)), nil
	case v < 1<<21:
		return append(dst, 0xC0|byte(v>>16), byte(v>>8), byte(v)), nil
	case v < 1<<28:
		return append(dst, 0xE0|byte(v>>24), byte(v>>16), byte(v>>8), byte(v)), nil
	case v < 1<<35:
		return append(dst, 0xF0|byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v)), nil
	default:
		return dst, fmt.Errorf("%w: %d", ErrGammaRange, v)
	}
}

// HasBit reports whether bit n of v is set. Bit indexes beyond the width of
// v fail with ErrBitRange rather than reporting false.
func HasBit(v uint64, n uint) (bool, error) {
	if n >= 64 {
		return false, fmt.Errorf("%w: bit %d of a 64-bit value", ErrBitRange, n)
	}
	return v&(1<<n) != 0, nil
}
