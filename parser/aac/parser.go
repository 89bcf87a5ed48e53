package aac

import (
	"fmt"
)

// samplesPerFrame is the PCM sample count carried by one AAC frame
const samplesPerFrame = 1024

// mpegSamplingRates - indexed by the 4-bit samplingFrequencyIndex of an
// AudioSpecificConfig (ISO 14496-3 1.6.3.4). 13..14 reserved, 15 escape.
var mpegSamplingRates = []int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350,
}

// flvSoundRates - indexed by the 2-bit SoundRate of an FLV audio tag
var flvSoundRates = []int{5500, 11025, 22050, 44100}

var (
	// ErrInvalidConfig means the AudioSpecificConfig is too short
	ErrInvalidConfig = fmt.Errorf("invalid audio specific config")
	// ErrInvalidIndex means invalid sampling frequency index
	ErrInvalidIndex = fmt.Errorf("invalid sampling frequency index")
	// ErrInvalidChannelConfig means invalid channel configuration
	ErrInvalidChannelConfig = fmt.Errorf("invalid channel configuration")
)

// Config is a decoded AudioSpecificConfig
type Config struct {
	ObjectType    int
	SamplingIndex int
	SampleRate    int
	ChannelConfig int
	Raw           []byte
}

// Codec returns the RFC 6381 codec string, e.g. "mp4a.40.2"
func (c *Config) Codec() string {
	return fmt.Sprintf("mp4a.40.%d", c.ObjectType)
}

// RefSampleDuration returns the duration of one frame in timescale units
func (c *Config) RefSampleDuration(timescale int) float64 {
	return float64(samplesPerFrame) / float64(c.SampleRate) * float64(timescale)
}

// ParseConfig decodes the two leading bytes of an AudioSpecificConfig:
// audioObjectType [5b] samplingFrequencyIndex [4b] channelConfiguration [4b]
func ParseConfig(src []byte) (*Config, error) {
	if len(src) < 2 {
		return nil, ErrInvalidConfig
	}
	c := &Config{
		ObjectType:    int(src[0] >> 3),
		SamplingIndex: int((src[0]&0x07)<<1 | src[1]>>7),
		ChannelConfig: int((src[1] & 0x78) >> 3),
	}
	if c.SamplingIndex >= len(mpegSamplingRates) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, c.SamplingIndex)
	}
	c.SampleRate = mpegSamplingRates[c.SamplingIndex]
	if c.ChannelConfig >= 8 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannelConfig, c.ChannelConfig)
	}
	c.Raw = append([]byte(nil), src...)
	return c, nil
}

// FLVSoundRate maps the SoundRate field of an FLV audio tag to Hz
func FLVSoundRate(index int) (int, error) {
	if index < 0 || index >= len(flvSoundRates) {
		return 0, fmt.Errorf("%w: sound rate %d", ErrInvalidIndex, index)
	}
	return flvSoundRates[index], nil
}
