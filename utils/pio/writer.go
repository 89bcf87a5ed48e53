package pio

// PutU8 put uint8 to byte slice
func PutU8(b []byte, v uint8) {
	b[0] = v
}

// PutU16BE put uint16 to big-endian byte slice
func PutU16BE(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

// PutI24BE put int24 to big-endian byte slice
func PutI24BE(b []byte, v int32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// PutU24BE put uint24 to big-endian byte slice
func PutU24BE(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// PutU32BE put uint32 to big-endian byte slice
func PutU32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
