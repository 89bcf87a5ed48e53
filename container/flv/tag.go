package flv

import (
	"fmt"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/gwuhaolin/flvpull/utils/pio"
)

const (
	fileHeaderLen  = 9
	tagHeaderLen   = 11
	prevTagSizeLen = 4
)

type flvTag struct {
	fType     uint8
	dataSize  uint32
	timeStamp int32
	streamID  uint32 // always 0
}

type mediaTag struct {
	/*
		SoundFormat: UB[4]
		10 = AAC, others are not supported here
	*/
	soundFormat uint8
	/*
		SoundRate: UB[2]
		0 = 5.5-kHz, 1 = 11-kHz, 2 = 22-kHz, 3 = 44-kHz
		For AAC: always 3
	*/
	soundRate uint8
	/*
		SoundSize: UB[1]
		0 = snd8Bit, 1 = snd16Bit
	*/
	soundSize uint8
	/*
		SoundType: UB[1]
		0 = sndMono, 1 = sndStereo
	*/
	soundType uint8
	/*
		AACPacketType: UI8
		0: AAC sequence header
		1: AAC raw
	*/
	aacPacketType uint8
	/*
		FrameType: UB[4]
		1: keyframe (for AVC, a seekable frame)
		2: inter frame (for AVC, a non-seekable frame)
	*/
	frameType uint8
	/*
		CodecID: UB[4]
		7: AVC
	*/
	codecID uint8
	/*
		AVCPacketType: IF CodecID == 7 UI8
		0: AVC sequence header
		1: AVC NALU
		2: AVC end of sequence
	*/
	avcPacketType uint8
	/*
		CompositionTime: IF CodecID == 7 SI24, 0 unless AVCPacketType == 1
	*/
	compositionTime int32
}

// Tag is a parsed tag header plus, once ParseMediaTagHeader ran, the audio
// or video header at the start of its body
type Tag struct {
	flvt   flvTag
	mediat mediaTag
}

// parseTagHeader reads the 11 bytes of a tag header. The timestamp is
// stored as its low 24 bits big-endian followed by the high 8 bits.
func (tag *Tag) parseTagHeader(b []byte) {
	tag.flvt.fType = b[0]
	tag.flvt.dataSize = pio.U24BE(b[1:4])
	ts2, ts1, ts0, ts3 := b[4], b[5], b[6], b[7]
	tag.flvt.timeStamp = int32(uint32(ts0) | uint32(ts1)<<8 | uint32(ts2)<<16 | uint32(ts3)<<24)
	tag.flvt.streamID = pio.U24BE(b[8:11])
}

// TagType returns the tag type, 8 audio, 9 video, 18 script
func (tag *Tag) TagType() uint8 {
	return tag.flvt.fType
}

// DataSize returns the body size
func (tag *Tag) DataSize() uint32 {
	return tag.flvt.dataSize
}

// Timestamp returns the tag timestamp in ms
func (tag *Tag) Timestamp() int32 {
	return tag.flvt.timeStamp
}

// StreamID returns the stream id, expected to be 0
func (tag *Tag) StreamID() uint32 {
	return tag.flvt.streamID
}

// SoundFormat returns the 4-bit SoundFormat field
func (tag *Tag) SoundFormat() uint8 {
	return tag.mediat.soundFormat
}

// AACPacketType returns the AAC packet type
func (tag *Tag) AACPacketType() uint8 {
	return tag.mediat.aacPacketType
}

// SoundRateIndex returns the 2-bit SoundRate field
func (tag *Tag) SoundRateIndex() uint8 {
	return tag.mediat.soundRate
}

// ChannelCount returns 1 for mono, 2 for stereo
func (tag *Tag) ChannelCount() int {
	if tag.mediat.soundType == av.SoundMono {
		return 1
	}
	return 2
}

// IsKeyFrame implements av.VideoPacketHeader
func (tag *Tag) IsKeyFrame() bool {
	return tag.mediat.frameType == av.FrameKey
}

// CodecID implements av.VideoPacketHeader
func (tag *Tag) CodecID() uint8 {
	return tag.mediat.codecID
}

// AVCPacketType returns the AVC packet type
func (tag *Tag) AVCPacketType() uint8 {
	return tag.mediat.avcPacketType
}

// CompositionTime implements av.VideoPacketHeader
func (tag *Tag) CompositionTime() int32 {
	return tag.mediat.compositionTime
}

// ParseMediaTagHeader parses the audio or video header at the start of a
// tag body and returns its length
func (tag *Tag) ParseMediaTagHeader(b []byte, isVideo bool) (n int, err error) {
	switch isVideo {
	case false:
		n, err = tag.parseAudioHeader(b)
	case true:
		n, err = tag.parseVideoHeader(b)
	}
	return
}

func (tag *Tag) parseAudioHeader(b []byte) (n int, err error) {
	if len(b) < 2 {
		err = fmt.Errorf("invalid audiodata len=%d", len(b))
		return
	}
	flags := b[0]
	tag.mediat.soundFormat = flags >> 4
	tag.mediat.soundRate = (flags & 0x0c) >> 2
	tag.mediat.soundSize = (flags & 0x02) >> 1
	tag.mediat.soundType = flags & 0x01
	n++
	if tag.mediat.soundFormat == av.SoundAAC {
		tag.mediat.aacPacketType = b[1]
		n++
	}
	return
}

func (tag *Tag) parseVideoHeader(b []byte) (n int, err error) {
	if len(b) < 2 {
		err = fmt.Errorf("invalid videodata len=%d", len(b))
		return
	}
	flags := b[0]
	tag.mediat.frameType = (flags & 0xf0) >> 4
	tag.mediat.codecID = flags & 0x0f
	n++
	if tag.mediat.codecID != av.VideoH264 {
		return
	}
	if len(b) < n+4 {
		err = fmt.Errorf("invalid avc videodata len=%d", len(b))
		return
	}
	tag.mediat.avcPacketType = b[1]
	tag.mediat.compositionTime = pio.I24BE(b[2:5])
	n += 4
	return
}
