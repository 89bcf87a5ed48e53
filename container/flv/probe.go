package flv

import (
	"math"

	"github.com/gwuhaolin/flvpull/utils/pio"
)

// MinProbeSize is the number of bytes needed before the first tag can be
// looked at: the file header plus PreviousTagSize0
const MinProbeSize = fileHeaderLen + prevTagSizeLen

var flvSignature = []byte{0x46, 0x4c, 0x56, 0x01}

// ProbeResult is the outcome of checking the file header
type ProbeResult struct {
	Match         bool
	Consumed      int
	DataOffset    int
	HasAudioTrack bool
	HasVideoTrack bool
}

var mismatch = ProbeResult{
	Consumed:   -1,
	DataOffset: -1,
}

// Probe checks whether b starts with an FLV header. It does not modify b and
// keeps no state.
func Probe(b []byte) ProbeResult {
	if len(b) < fileHeaderLen {
		return mismatch
	}
	for i, c := range flvSignature {
		if b[i] != c {
			return mismatch
		}
	}

	// Flags: 5 bits reserved, audio, 1 bit reserved, video
	hasAudio := (b[4]&0x04)>>2 != 0
	hasVideo := b[4]&0x01 != 0

	offset := pio.U32BE(b[5:9])
	if offset < fileHeaderLen || offset > math.MaxInt32 {
		return mismatch
	}

	return ProbeResult{
		Match:         true,
		Consumed:      int(offset),
		DataOffset:    int(offset),
		HasAudioTrack: hasAudio,
		HasVideoTrack: hasVideo,
	}
}
