package flv

import (
	"bytes"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/gwuhaolin/flvpull/parser/aac"

	log "github.com/sirupsen/logrus"
)

func (d *Demuxer) audioState() (*av.AudioTrack, *av.AudioMetadata) {
	if d.audioTrack == nil {
		d.audioTrack = &av.AudioTrack{ID: audioTrackID}
		d.audioMeta = &av.AudioMetadata{
			ID:        audioTrackID,
			Timescale: av.DefaultTimescale,
		}
	}
	return d.audioTrack, d.audioMeta
}

func (d *Demuxer) parseAudioData(data []byte, tagTimestamp int32) {
	if len(data) <= 1 {
		log.Warn("Flv: Invalid audio packet, missing SoundData payload!")
		return
	}
	track, meta := d.audioState()

	var tag Tag
	n, err := tag.ParseMediaTagHeader(data, false)
	if err != nil {
		log.Warn("Flv: ", err)
		return
	}
	if tag.SoundFormat() != av.SoundAAC {
		d.onError(av.CodecUnsupported, "Flv: Unsupported audio codec idx: %d", tag.SoundFormat())
		return
	}
	soundRate, err := aac.FLVSoundRate(int(tag.SoundRateIndex()))
	if err != nil {
		d.onError(av.FormatError, "Flv: Invalid audio sample rate idx: %d", tag.SoundRateIndex())
		return
	}

	payload := data[n:]

	switch tag.AACPacketType() {
	case av.AACSeqHeader:
		cfg, err := aac.ParseConfig(payload)
		if err != nil {
			d.onError(av.FormatError, "Flv: AudioSpecificConfig: %v", err)
			return
		}
		channelCount := cfg.ChannelConfig
		if channelCount == 0 {
			channelCount = tag.ChannelCount()
		}
		changed := meta.Codec != cfg.Codec() ||
			meta.SampleRate != cfg.SampleRate ||
			meta.ChannelCount != channelCount ||
			!bytes.Equal(meta.Config, cfg.Raw)
		meta.SampleRate = cfg.SampleRate
		meta.ChannelCount = channelCount
		meta.ObjectType = cfg.ObjectType
		meta.Codec = cfg.Codec()
		meta.OriginalCodec = cfg.Codec()
		meta.Config = cfg.Raw
		meta.RefSampleDuration = cfg.RefSampleDuration(meta.Timescale)
		log.Debugf("Flv: AudioSpecificConfig %s %dHz (tag says %dHz) %dch",
			meta.Codec, meta.SampleRate, soundRate, meta.ChannelCount)
		if changed {
			d.sink.OnTrackMetadata(av.TrackAudio, meta)
		}

	case av.AACRaw:
		if len(payload) == 0 {
			log.Warn("Flv: Empty AAC raw frame skipped")
			return
		}
		dts := d.timestampBase + int64(tagTimestamp)
		track.Append(av.AudioSample{
			Data:   d.pool.Clone(payload),
			Length: len(payload),
			DTS:    dts,
			PTS:    dts,
		})

	default:
		log.Errorf("Flv: Unsupported AAC data type %d", tag.AACPacketType())
	}
}
