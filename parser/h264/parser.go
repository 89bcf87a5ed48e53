package h264

import (
	"fmt"

	"github.com/gwuhaolin/flvpull/utils/pio"
)

// NAL unit types (ITU-T H.264 Table 7-1)
const (
	NaluTypeNotDefine byte = 0
	//slice_layer_without_partioning_rbsp() sliceheader
	NaluTypeSlice byte = 1
	// slice_data_partition_a_layer_rbsp( ), slice_header
	NaluTypeDpa byte = 2
	// slice_data_partition_b_layer_rbsp( )
	NaluTypeDpb byte = 3
	// slice_data_partition_c_layer_rbsp( )
	NaluTypeDpc byte = 4
	// slice_layer_without_partitioning_rbsp( ),sliceheader
	NaluTypeIdr byte = 5
	//sei_rbsp( )
	NaluTypeSei byte = 6
	//seq_parameter_set_rbsp( )
	NaluTypeSps byte = 7
	//pic_parameter_set_rbsp( )
	NaluTypePps byte = 8
	// access_unit_delimiter_rbsp( )
	NaluTypeAud byte = 9
	//end_of_seq_rbsp( )
	NaluTypeEoesq byte = 10
	//end_of_stream_rbsp( )
	NaluTypeEostream byte = 11
	//filler_data_rbsp( )
	NaluTypeFiller byte = 12
)

// NaluBytesLen is the only NALU length prefix size supported
const NaluBytesLen int = 4

var (
	// ErrDecDataNil means the configuration record is too short
	ErrDecDataNil = fmt.Errorf("dec buf is nil")
	// ErrConfigVersion means bad configuration version or profile
	ErrConfigVersion = fmt.Errorf("invalid configuration version or profile")
	// ErrNaluLengthSize means a NALU length prefix size other than 4
	ErrNaluLengthSize = fmt.Errorf("unsupported nalu length size")
	// ErrSpsData means sps data error
	ErrSpsData = fmt.Errorf("sps data error")
	// ErrPpsHeader means pps header error
	ErrPpsHeader = fmt.Errorf("pps header error")
	// ErrPpsData means pps data error
	ErrPpsData = fmt.Errorf("pps data error")
	// ErrNaluBodyLen means nalu body len error
	ErrNaluBodyLen = fmt.Errorf("nalu body len error")
	// ErrNaluTruncated means trailing bytes too short for a length prefix
	ErrNaluTruncated = fmt.Errorf("nalu length prefix truncated")
)

// DecoderConfigurationRecord is an AVCDecoderConfigurationRecord
// (ISO 14496-15 5.2.4.1)
type DecoderConfigurationRecord struct {
	ConfigVersion        byte //8bits
	AVCProfileIndication byte //8bits
	ProfileCompatibility byte //8bits
	AVCLevelIndication   byte //8bits
	NaluLen              int  //2bits + 1
	SPS                  [][]byte
	PPS                  [][]byte
}

// ParseDecoderConfigurationRecord walks src. SPS and PPS entries alias src.
func ParseDecoderConfigurationRecord(src []byte) (*DecoderConfigurationRecord, error) {
	if len(src) < 7 {
		return nil, ErrDecDataNil
	}
	var rec DecoderConfigurationRecord
	rec.ConfigVersion = src[0]
	rec.AVCProfileIndication = src[1]
	rec.ProfileCompatibility = src[2]
	rec.AVCLevelIndication = src[3]
	if rec.ConfigVersion != 1 || rec.AVCProfileIndication == 0 {
		return nil, fmt.Errorf("%w: version=%d profile=%d", ErrConfigVersion,
			rec.ConfigVersion, rec.AVCProfileIndication)
	}
	rec.NaluLen = int(src[4]&0x03) + 1
	if rec.NaluLen != NaluBytesLen {
		return nil, fmt.Errorf("%w: %d", ErrNaluLengthSize, rec.NaluLen)
	}

	spsNum := int(src[5] & 0x1f)
	if spsNum == 0 {
		return nil, fmt.Errorf("%w: no sps", ErrSpsData)
	}
	offset := 6
	for i := 0; i < spsNum; i++ {
		if offset+2 > len(src) {
			return nil, fmt.Errorf("%w: sps #%d header truncated", ErrSpsData, i)
		}
		l := int(pio.U16BE(src[offset:]))
		offset += 2
		if offset+l > len(src) {
			return nil, fmt.Errorf("%w: sps #%d body truncated", ErrSpsData, i)
		}
		if l > 0 {
			rec.SPS = append(rec.SPS, src[offset:offset+l])
		}
		offset += l
	}
	if len(rec.SPS) == 0 {
		return nil, fmt.Errorf("%w: all sps empty", ErrSpsData)
	}

	if offset >= len(src) {
		return nil, ErrPpsHeader
	}
	ppsNum := int(src[offset])
	offset++
	if ppsNum == 0 {
		return nil, fmt.Errorf("%w: no pps", ErrPpsHeader)
	}
	for i := 0; i < ppsNum; i++ {
		if offset+2 > len(src) {
			return nil, fmt.Errorf("%w: pps #%d header truncated", ErrPpsData, i)
		}
		l := int(pio.U16BE(src[offset:]))
		offset += 2
		if offset+l > len(src) {
			return nil, fmt.Errorf("%w: pps #%d body truncated", ErrPpsData, i)
		}
		if l > 0 {
			rec.PPS = append(rec.PPS, src[offset:offset+l])
		}
		offset += l
	}
	return &rec, nil
}

// Nalu is a NAL unit found by SplitNalus. Data aliases the source and keeps
// the length prefix.
type Nalu struct {
	Type byte
	Data []byte
}

// SplitNalus walks src as {length prefix, body} records.
//
// When fewer than lengthSize bytes are left for a prefix, the units found so
// far are returned along with ErrNaluTruncated. When a declared length runs
// past src, no unit is returned and the error wraps ErrNaluBodyLen.
func SplitNalus(src []byte, lengthSize int) ([]Nalu, error) {
	var units []Nalu
	offset := 0
	for offset < len(src) {
		if len(src)-offset < lengthSize {
			return units, ErrNaluTruncated
		}
		size := naluSize(src[offset:], lengthSize)
		if size > uint64(len(src)-offset-lengthSize) {
			return nil, fmt.Errorf("%w: declared %d, %d left", ErrNaluBodyLen,
				size, len(src)-offset-lengthSize)
		}
		end := offset + lengthSize + int(size)
		if size > 0 {
			units = append(units, Nalu{
				Type: src[offset+lengthSize] & 0x1f,
				Data: src[offset:end],
			})
		}
		offset = end
	}
	return units, nil
}

// naluSize returns the declared length unsigned; it may exceed MaxInt on 32-bit
func naluSize(src []byte, lengthSize int) uint64 {
	if lengthSize == 4 {
		return uint64(pio.U32BE(src))
	}
	var size uint64
	for i := 0; i < lengthSize; i++ {
		size = size<<8 | uint64(src[i])
	}
	return size
}
