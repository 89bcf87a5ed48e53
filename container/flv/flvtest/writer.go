// Package flvtest builds FLV byte streams for tests.
package flvtest

import (
	"bytes"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/gwuhaolin/flvpull/utils/pio"
)

const (
	headerLen = 11
)

// SPS1080 is a High@4.0 1920x1080 SPS with 30000/1001 fps timing
var SPS1080 = []byte{
	0x67, 0x64, 0x00, 0x28, 0xac, 0xd9, 0x40, 0x78, 0x02, 0x27, 0xe5, 0xc0,
	0x44, 0x00, 0x00, 0x0f, 0xa4, 0x00, 0x03, 0xa9, 0x82, 0x10,
}

// PPS is a small PPS NAL unit
var PPS = []byte{0x68, 0xee, 0x3c, 0x80}

// ASC44100Stereo is an AAC-LC AudioSpecificConfig, 44.1kHz, 2 channels
var ASC44100Stereo = []byte{0x12, 0x10}

// Writer writes an FLV stream into memory
type Writer struct {
	buf bytes.Buffer
	h   []byte
}

// NewWriter returns a Writer that already holds the file header and
// PreviousTagSize0. flags is the header's audio/video presence byte.
func NewWriter(flags byte) *Writer {
	ret := &Writer{
		h: make([]byte, headerLen),
	}
	ret.buf.Write([]byte{0x46, 0x4c, 0x56, 0x01, flags, 0x00, 0x00, 0x00, 0x09})
	pio.PutU32BE(ret.h[:4], 0)
	ret.buf.Write(ret.h[:4])
	return ret
}

// WriteTag writes one tag with a correct trailer
func (w *Writer) WriteTag(typeID uint8, timestamp uint32, data []byte) {
	w.WriteTagTrailer(typeID, timestamp, data, uint32(len(data)+headerLen))
}

// WriteTagTrailer writes one tag with the given trailer value
func (w *Writer) WriteTagTrailer(typeID uint8, timestamp uint32, data []byte, trailer uint32) {
	h := w.h[:headerLen]
	timestampbase := timestamp & 0xffffff
	timestampExt := timestamp >> 24 & 0xff

	pio.PutU8(h[0:1], typeID)
	pio.PutU24BE(h[1:4], uint32(len(data)))
	pio.PutU24BE(h[4:7], timestampbase)
	pio.PutU8(h[7:8], uint8(timestampExt))
	pio.PutU24BE(h[8:11], 0)
	w.buf.Write(h)
	w.buf.Write(data)

	pio.PutU32BE(h[:4], trailer)
	w.buf.Write(h[:4])
}

// Len returns the stream size so far
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the stream
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// AACSequenceHeader returns an audio tag body carrying asc
func AACSequenceHeader(asc []byte) []byte {
	return append([]byte{0xaf, av.AACSeqHeader}, asc...)
}

// AACRaw returns an audio tag body carrying one raw frame
func AACRaw(frame []byte) []byte {
	return append([]byte{0xaf, av.AACRaw}, frame...)
}

// DecoderConfig builds an AVCDecoderConfigurationRecord with 4-byte NALU
// lengths from one SPS and one PPS
func DecoderConfig(sps, pps []byte) []byte {
	rec := []byte{0x01, sps[1], sps[2], sps[3], 0xff, 0xe1}
	rec = append(rec, byte(len(sps)>>8), byte(len(sps)))
	rec = append(rec, sps...)
	rec = append(rec, 0x01, byte(len(pps)>>8), byte(len(pps)))
	return append(rec, pps...)
}

// AVCSequenceHeader returns a video tag body carrying record
func AVCSequenceHeader(record []byte) []byte {
	return append([]byte{0x17, av.AVCSeqHeader, 0x00, 0x00, 0x00}, record...)
}

// AVCNalus returns a video tag body carrying nalus as one frame
func AVCNalus(frameType uint8, cts int32, nalus ...[]byte) []byte {
	b := []byte{frameType<<4 | av.VideoH264, av.AVCNalu, 0, 0, 0}
	pio.PutI24BE(b[2:5], cts)
	for _, n := range nalus {
		l := make([]byte, 4)
		pio.PutU32BE(l, uint32(len(n)))
		b = append(b, l...)
		b = append(b, n...)
	}
	return b
}

// Stream returns a complete audio+video stream: both sequence headers,
// then frames interleaved every 40ms starting at 0. Every 5th video frame is
// an IDR.
func Stream(frames int) []byte {
	w := NewWriter(0x05)
	w.WriteTag(av.TagScriptDataAMF0, 0, []byte{0x02, 0x00, 0x0a, 'o', 'n', 'M', 'e', 't', 'a', 'D', 'a', 't', 'a'})
	w.WriteTag(av.TagVideo, 0, AVCSequenceHeader(DecoderConfig(SPS1080, PPS)))
	w.WriteTag(av.TagAudio, 0, AACSequenceHeader(ASC44100Stereo))
	for i := 0; i < frames; i++ {
		ts := uint32(i * 40)
		ft, nal := uint8(av.FrameInter), []byte{0x41, byte(i), 0x9a, 0x02}
		if i%5 == 0 {
			ft, nal = av.FrameKey, []byte{0x65, byte(i), 0x88, 0x84, 0x00}
		}
		w.WriteTag(av.TagVideo, ts, AVCNalus(ft, 80, []byte{0x09, 0xf0}, nal))
		w.WriteTag(av.TagAudio, ts, AACRaw([]byte{0x21, byte(i), 0x49, 0x90, 0x02, 0x19}))
	}
	return w.Bytes()
}
