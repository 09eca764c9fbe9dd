package analysis

import "math"

// Norm encoding compresses a field's length normalization factor
// (boost / sqrt(tokenCount)) into one byte: a small float with 3 mantissa
// bits and a zero exponent point of 15. One byte per term row is redundant
// but saves a second read at query time; decoding is a table lookup.

const (
	normMantissaBits = 3
	normZeroExponent = 15
)

var normTable [256]float32

func init() {
	for i := range normTable {
		normTable[i] = byteToFloat(byte(i))
	}
}

// EncodeNorm computes and encodes the norm for a field with the given
// combined boost and token count. A zero token count encodes the bare boost.
func EncodeNorm(boost float32, tokenCount int) byte {
	norm := boost
	if tokenCount > 0 {
		norm = boost / float32(math.Sqrt(float64(tokenCount)))
	}
	return floatToByte(norm)
}

// DecodeNorm is the inverse of EncodeNorm up to the precision the single
// byte retains.
func DecodeNorm(b byte) float32 {
	return normTable[b]
}

// floatToByte truncates the float's mantissa to normMantissaBits and
// re-biases the exponent around normZeroExponent. Values at or below zero
// encode as 0, positive underflow as the smallest non-zero code, and
// overflow clamps to 0xFF.
func floatToByte(f float32) byte {
	if f <= 0 {
		return 0
	}
	bits := math.Float32bits(f)
	smallfloat := int32(bits >> (24 - normMantissaBits))
	fzero := int32((63 - normZeroExponent) << normMantissaBits)
	if smallfloat <= fzero {
		return 1
	}
	if smallfloat >= fzero+0x100 {
		return 0xFF
	}
	return byte(smallfloat - fzero)
}

func byteToFloat(b byte) float32 {
	if b == 0 {
		return 0
	}
	bits := uint32(b) << (24 - normMantissaBits)
	bits += uint32(63-normZeroExponent) << 24
	return math.Float32frombits(bits)
}
