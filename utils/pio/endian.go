package pio

import "unsafe"

// NativeLittleEndian reports whether the host stores multi-byte integers
// least significant byte first. FLV fields are always big-endian, so the
// readers in this package never depend on it.
var NativeLittleEndian = detectLittleEndian()

func detectLittleEndian() bool {
	var probe uint16 = 0x0100
	return *(*byte)(unsafe.Pointer(&probe)) == 0x00
}
