package pio

// U8 converts byte slice to uint8
func U8(b []byte) (i uint8) {
	return b[0]
}

// U16BE converts big-endian byte slice to uint16
func U16BE(b []byte) (i uint16) {
	i = uint16(b[0])
	i <<= 8
	i |= uint16(b[1])
	return
}

// U24BE converts big-endian byte slice to uint24
func U24BE(b []byte) (i uint32) {
	i = uint32(b[0])
	i <<= 8
	i |= uint32(b[1])
	i <<= 8
	i |= uint32(b[2])
	return
}

// I24BE converts big-endian byte slice to a sign-extended int24
func I24BE(b []byte) int32 {
	return SignExtend24(U24BE(b))
}

// U32BE converts big-endian byte slice to uint32
func U32BE(b []byte) (i uint32) {
	i = uint32(b[0])
	i <<= 8
	i |= uint32(b[1])
	i <<= 8
	i |= uint32(b[2])
	i <<= 8
	i |= uint32(b[3])
	return
}

// I32BE converts big-endian byte slice to int32
func I32BE(b []byte) int32 {
	return int32(U32BE(b))
}

// SignExtend24 widens the low 24 bits of v to int32, propagating bit 23.
func SignExtend24(v uint32) int32 {
	return int32(v<<8) >> 8
}
