package av

import (
	"context"
	"fmt"
)

// Tag definitions
const (
	// TagAudio denotes the audio tag
	TagAudio = 8
	// TagVideo denotes the video tag
	TagVideo = 9
	// TagScriptDataAMF0 denotes the script data AMF0 tag
	TagScriptDataAMF0 = 18
)

// Sound definitions
const (
	// SoundAAC denotes the codec of sound is acc
	SoundAAC = 10

	// Sound8Bit denotes sound is 8bit
	Sound8Bit = 0
	// Sound16Bit denotes sound is 16bit
	Sound16Bit = 1

	// SoundMono denotes sound is mono
	SoundMono = 0
	// SoundStereo denotes sound is stereo
	SoundStereo = 1

	// AACSeqHeader denotes the AAC Sequence Header
	AACSeqHeader = 0
	// AACRaw denotes the AAC raw
	AACRaw = 1
)

// H.264/AVC definitions
const (
	// AVCSeqHeader denotes the AVC Sequence Header
	AVCSeqHeader = 0
	// AVCNalu denotes the AVC NALU
	AVCNalu = 1
	// AVCEos denotes the AVC EOS
	AVCEos = 2

	// FrameKey denotes the frame key
	FrameKey = 1
	// FrameInter denotes the frame inter
	FrameInter = 2

	// VideoH264 denotes the video is H.264
	VideoH264 = 7
)

// DefaultTimescale is the timescale of every track: timestamps are in ms
const DefaultTimescale = 1000

// TrackType tells audio from video
type TrackType string

// Track types
const (
	TrackAudio TrackType = "audio"
	TrackVideo TrackType = "video"
)

// VideoPacketHeader is the packet header of video
type VideoPacketHeader interface {
	IsKeyFrame() bool
	CodecID() uint8
	CompositionTime() int32
}

// AudioSample is one AAC access unit. For AAC DTS always equals PTS.
type AudioSample struct {
	Data   []byte
	Length int
	DTS    int64
	PTS    int64
}

// NALUnit is one NAL unit of a video sample. Data keeps the 4-byte length
// prefix, so a sample's units concatenate into AVCC form.
type NALUnit struct {
	Type byte
	Data []byte
}

// VideoSample is one AVC access unit.
type VideoSample struct {
	Units      []NALUnit
	Length     int
	IsKeyframe bool
	DTS        int64
	CTS        int32
	PTS        int64
	// FilePosition is the absolute offset of the carrying tag; only set for keyframes.
	FilePosition int64
}

// AudioTrack is an append-only sequence of audio samples
type AudioTrack struct {
	ID             int
	SequenceNumber int
	Samples        []AudioSample
	Length         int
}

// Append adds s to the end of the track
func (t *AudioTrack) Append(s AudioSample) {
	t.Samples = append(t.Samples, s)
	t.Length += s.Length
	t.SequenceNumber++
}

// VideoTrack is an append-only sequence of video samples
type VideoTrack struct {
	ID             int
	SequenceNumber int
	Samples        []VideoSample
	Length         int
}

// Append adds s to the end of the track
func (t *VideoTrack) Append(s VideoSample) {
	t.Samples = append(t.Samples, s)
	t.Length += s.Length
	t.SequenceNumber++
}

// TrackMetadata is either *AudioMetadata or *VideoMetadata
type TrackMetadata interface {
	Track() TrackType
	CodecString() string
}

// AudioMetadata describes an AAC track
type AudioMetadata struct {
	ID                int     `json:"id"`
	Timescale         int     `json:"timescale"`
	SampleRate        int     `json:"sampleRate"`
	ChannelCount      int     `json:"channelCount"`
	Codec             string  `json:"codec"`
	OriginalCodec     string  `json:"originalCodec"`
	ObjectType        int     `json:"objectType"`
	Config            []byte  `json:"config"`
	RefSampleDuration float64 `json:"refSampleDuration"`
}

// Track implements TrackMetadata
func (m *AudioMetadata) Track() TrackType { return TrackAudio }

// CodecString implements TrackMetadata
func (m *AudioMetadata) CodecString() string { return m.Codec }

// Size is a width/height pair
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FrameRate is the frame rate signalled by the SPS
type FrameRate struct {
	Fixed  bool    `json:"fixed"`
	FPS    float64 `json:"fps"`
	FPSNum int     `json:"fps_num"`
	FPSDen int     `json:"fps_den"`
}

// VideoMetadata describes an AVC track
type VideoMetadata struct {
	ID                int       `json:"id"`
	Timescale         int       `json:"timescale"`
	CodecWidth        int       `json:"codecWidth"`
	CodecHeight       int       `json:"codecHeight"`
	PresentWidth      int       `json:"presentWidth"`
	PresentHeight     int       `json:"presentHeight"`
	Profile           string    `json:"profile"`
	Level             string    `json:"level"`
	BitDepth          int       `json:"bitDepth"`
	ChromaFormat      int       `json:"chromaFormat"`
	SarRatio          Size      `json:"sarRatio"`
	FrameRate         FrameRate `json:"frameRate"`
	Codec             string    `json:"codec"`
	AVCC              []byte    `json:"avcc"`
	RefSampleDuration float64   `json:"refSampleDuration"`
}

// Track implements TrackMetadata
func (m *VideoMetadata) Track() TrackType { return TrackVideo }

// CodecString implements TrackMetadata
func (m *VideoMetadata) CodecString() string { return m.Codec }

// DemuxErrorKind classifies errors reported by the demuxer
type DemuxErrorKind string

// Demux error kinds
const (
	FormatUnsupported DemuxErrorKind = "FormatUnsupported"
	FormatError       DemuxErrorKind = "FormatError"
	CodecUnsupported  DemuxErrorKind = "CodecUnsupported"
)

// Sink receives everything a demuxer produces besides the samples, which
// stay on the append-only tracks.
type Sink interface {
	OnTrackMetadata(track TrackType, meta TrackMetadata)
	OnDemuxError(kind DemuxErrorKind, msg string)
}

// LoaderErrorKind classifies loader failures
type LoaderErrorKind string

// Loader error kinds
const (
	LoaderOK                    LoaderErrorKind = "OK"
	LoaderException             LoaderErrorKind = "Exception"
	LoaderHTTPStatusCodeInvalid LoaderErrorKind = "HttpStatusCodeInvalid"
	LoaderConnectingTimeout     LoaderErrorKind = "ConnectingTimeout"
	LoaderEarlyEOF              LoaderErrorKind = "EarlyEof"
	LoaderUnrecoverableEarlyEOF LoaderErrorKind = "UnrecoverableEarlyEof"
)

// LoaderError is reported by a Loader when the transfer fails
type LoaderError struct {
	Kind LoaderErrorKind
	Code int
	Msg  string
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("%s: code=%d msg=%s", e.Kind, e.Code, e.Msg)
}

// LoaderStatus is the state of a Loader
type LoaderStatus int

// Loader statuses
const (
	StatusIdle LoaderStatus = iota
	StatusConnecting
	StatusBuffering
	StatusError
	StatusComplete
)

func (s LoaderStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusBuffering:
		return "buffering"
	case StatusError:
		return "error"
	case StatusComplete:
		return "complete"
	}
	return fmt.Sprintf("LoaderStatus(%d)", int(s))
}

// LoaderHandler consumes what a Loader produces. All calls are made from the
// goroutine running Loader.Open, one at a time.
type LoaderHandler interface {
	// OnDataArrival hands over chunk, whose first byte sits at byteStart in
	// the stream. chunk is only valid for the duration of the call.
	OnDataArrival(chunk []byte, byteStart int64)
	OnContentLengthKnown(length int64)
	OnComplete(from, to int64)
	OnError(err *LoaderError)
}

// Loader produces the byte chunks of one stream
type Loader interface {
	// Open fetches url and blocks until the transfer completes, fails or ctx
	// is done. Exactly one of OnComplete or OnError is called before it
	// returns, unless ctx was cancelled.
	Open(ctx context.Context, url string, h LoaderHandler) error
	Status() LoaderStatus
}
