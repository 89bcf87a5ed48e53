package flv

import (
	"fmt"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/gwuhaolin/flvpull/parser/h264"
	"github.com/gwuhaolin/flvpull/utils/pio"
	"github.com/gwuhaolin/flvpull/utils/pool"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrAvcEndSEQ means error of avc end sequence
	ErrAvcEndSEQ = fmt.Errorf("avc end sequence")
)

const (
	videoTrackID = 1
	audioTrackID = 2
)

// SPSParser turns an SPS NAL unit into stream parameters
type SPSParser func(nalu []byte) (*h264.SPS, error)

// Option configures a Demuxer
type Option func(*Demuxer)

// WithSPSParser replaces h264.ParseSPS
func WithSPSParser(p SPSParser) Option {
	return func(d *Demuxer) {
		d.spsParser = p
	}
}

// WithStrict reports advisory anomalies to the sink as FormatError in
// addition to logging them
func WithStrict(strict bool) Option {
	return func(d *Demuxer) {
		d.strict = strict
	}
}

// WithTimestampBase offsets every sample timestamp by base ms
func WithTimestampBase(base int64) Option {
	return func(d *Demuxer) {
		d.timestampBase = base
	}
}

// Demuxer walks the tags of one FLV stream. It is not safe for concurrent
// use; every stream needs its own instance.
type Demuxer struct {
	sink      av.Sink
	spsParser SPSParser
	strict    bool
	pool      *pool.Pool

	firstParse    bool
	dataOffset    int
	hasAudio      bool
	hasVideo      bool
	timestampBase int64

	naluLengthSize     int
	referenceFrameRate av.FrameRate

	audioTrack *av.AudioTrack
	videoTrack *av.VideoTrack
	audioMeta  *av.AudioMetadata
	videoMeta  *av.VideoMetadata
}

// NewDemuxer returns a Demuxer for a stream whose header produced probe.
// sink is mandatory.
func NewDemuxer(probe ProbeResult, sink av.Sink, opts ...Option) (*Demuxer, error) {
	if sink == nil {
		return nil, fmt.Errorf("flv demuxer: nil sink")
	}
	if !probe.Match {
		return nil, fmt.Errorf("flv demuxer: probe did not match")
	}
	d := &Demuxer{
		sink:           sink,
		spsParser:      h264.ParseSPS,
		pool:           pool.NewPool(),
		firstParse:     true,
		dataOffset:     probe.DataOffset,
		hasAudio:       probe.HasAudioTrack,
		hasVideo:       probe.HasVideoTrack,
		naluLengthSize: h264.NaluBytesLen,
		referenceFrameRate: av.FrameRate{
			Fixed:  true,
			FPS:    23.976,
			FPSNum: 23976,
			FPSDen: 1000,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	log.Debugf("Flv: demuxer created, dataOffset=%d audio=%v video=%v littleEndian=%v",
		d.dataOffset, d.hasAudio, d.hasVideo, pio.NativeLittleEndian)
	return d, nil
}

// ParseChunks demuxes every complete tag in chunk, whose first byte sits at
// byteStart in the stream, and returns how many bytes it consumed. A tag that
// is not complete yet is left for the next call.
func (d *Demuxer) ParseChunks(chunk []byte, byteStart int64) int {
	offset := 0

	if byteStart == 0 {
		if len(chunk) < MinProbeSize {
			return 0
		}
		probe := Probe(chunk)
		if !probe.Match {
			d.onError(av.FormatUnsupported, "Flv: header mismatch at stream start")
			return 0
		}
		if len(chunk)-prevTagSizeLen < probe.DataOffset {
			return 0
		}
		offset = probe.DataOffset
	}

	if d.firstParse {
		if len(chunk) < offset+prevTagSizeLen {
			return 0
		}
		d.firstParse = false
		if byteStart+int64(offset) != int64(d.dataOffset) {
			d.warn("Flv: First time parsing but chunk byteStart invalid! byteStart=%d offset=%d dataOffset=%d",
				byteStart, offset, d.dataOffset)
		}
		if prevTagSize0 := pio.U32BE(chunk[offset:]); prevTagSize0 != 0 {
			d.warn("Flv: PrevTagSize0 !== 0 (%d)", prevTagSize0)
		}
		offset += prevTagSizeLen
	}

	for len(chunk)-offset >= tagHeaderLen+prevTagSizeLen {
		var tag Tag
		tag.parseTagHeader(chunk[offset:])
		dataSize := int(tag.DataSize())
		tagSize := tagHeaderLen + dataSize + prevTagSizeLen
		if len(chunk)-offset < tagSize {
			break
		}

		switch tag.TagType() {
		case av.TagAudio, av.TagVideo, av.TagScriptDataAMF0:
		default:
			log.Warnf("Flv: Unsupported tag type %d, skipped", tag.TagType())
			offset += tagSize
			continue
		}

		if tag.StreamID() != 0 {
			d.warn("Flv: Meet tag which has StreamID != 0 (%d)", tag.StreamID())
		}

		body := chunk[offset+tagHeaderLen : offset+tagHeaderLen+dataSize]
		switch tag.TagType() {
		case av.TagAudio:
			d.parseAudioData(body, tag.Timestamp())
		case av.TagVideo:
			d.parseVideoData(body, tag.Timestamp(), byteStart+int64(offset))
		case av.TagScriptDataAMF0:
			log.Debugf("Flv: script tag size=%d skipped", dataSize)
		}

		prevTagSize := pio.U32BE(chunk[offset+tagHeaderLen+dataSize:])
		if prevTagSize != uint32(tagHeaderLen+dataSize) {
			d.warn("Flv: Invalid PrevTagSize %d, expected %d", prevTagSize, tagHeaderLen+dataSize)
		}

		offset += tagSize
	}

	return offset
}

// AudioTrack returns the audio track, nil until the first audio tag
func (d *Demuxer) AudioTrack() *av.AudioTrack {
	return d.audioTrack
}

// VideoTrack returns the video track, nil until the first video tag
func (d *Demuxer) VideoTrack() *av.VideoTrack {
	return d.videoTrack
}

// AudioMetadata returns the latest audio metadata, nil until the first audio tag
func (d *Demuxer) AudioMetadata() *av.AudioMetadata {
	return d.audioMeta
}

// VideoMetadata returns the latest video metadata, nil until the first video tag
func (d *Demuxer) VideoMetadata() *av.VideoMetadata {
	return d.videoMeta
}

// HasAudio reports the header's audio flag
func (d *Demuxer) HasAudio() bool {
	return d.hasAudio
}

// HasVideo reports the header's video flag
func (d *Demuxer) HasVideo() bool {
	return d.hasVideo
}

func (d *Demuxer) onError(kind av.DemuxErrorKind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Errorf("%s: %s", kind, msg)
	d.sink.OnDemuxError(kind, msg)
}

// warn handles advisory conditions: logged, and surfaced as FormatError only
// in strict mode
func (d *Demuxer) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Warn(msg)
	if d.strict {
		d.sink.OnDemuxError(av.FormatError, msg)
	}
}
