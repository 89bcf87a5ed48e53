package flv

import (
	"errors"
	"fmt"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/gwuhaolin/flvpull/parser/h264"

	log "github.com/sirupsen/logrus"
)

func (d *Demuxer) videoState() (*av.VideoTrack, *av.VideoMetadata) {
	if d.videoTrack == nil {
		d.videoTrack = &av.VideoTrack{ID: videoTrackID}
		d.videoMeta = &av.VideoMetadata{
			ID:        videoTrackID,
			Timescale: av.DefaultTimescale,
		}
	}
	return d.videoTrack, d.videoMeta
}

func (d *Demuxer) parseVideoData(data []byte, tagTimestamp int32, tagPosition int64) {
	if len(data) <= 1 {
		log.Warn("Flv: Invalid video packet, missing VideoData payload!")
		return
	}
	d.videoState()

	var tag Tag
	n, err := tag.ParseMediaTagHeader(data, true)
	if tag.CodecID() != av.VideoH264 {
		d.onError(av.CodecUnsupported, "Flv: Unsupported codec in video frame: %d", tag.CodecID())
		return
	}
	if err != nil {
		log.Warn("Flv: Invalid AVC packet, missing AVCPacketType or/and CompositionTime: ", err)
		return
	}

	payload := data[n:]
	switch tag.AVCPacketType() {
	case av.AVCSeqHeader:
		d.parseAVCDecoderConfigurationRecord(payload)
	case av.AVCNalu:
		d.parseAVCVideoData(payload, &tag, tagTimestamp, tagPosition)
	case av.AVCEos:
		log.Debug("Flv: ", ErrAvcEndSEQ)
	default:
		d.onError(av.FormatError, "Flv: Invalid video packet type %d", tag.AVCPacketType())
	}
}

func (d *Demuxer) parseAVCDecoderConfigurationRecord(data []byte) {
	_, meta := d.videoState()

	rec, err := h264.ParseDecoderConfigurationRecord(data)
	if err != nil {
		d.onError(av.FormatError, "Flv: AVCDecoderConfigurationRecord: %v", err)
		return
	}
	if len(rec.SPS) > 1 {
		d.warn("Flv: Strange AVCDecoderConfigurationRecord: SPS Count = %d", len(rec.SPS))
	}
	if len(rec.PPS) > 1 {
		d.warn("Flv: Strange AVCDecoderConfigurationRecord: PPS Count = %d", len(rec.PPS))
	}

	sps := rec.SPS[0]
	info, err := d.spsParser(sps)
	if err != nil {
		d.onError(av.FormatError, "Flv: Invalid SPS: %v", err)
		return
	}
	if len(sps) < 4 {
		d.onError(av.FormatError, "Flv: SPS too short for codec string: %d bytes", len(sps))
		return
	}

	frameRate := info.FrameRate
	if !frameRate.Fixed || frameRate.FPSNum == 0 || frameRate.FPSDen == 0 {
		frameRate = d.referenceFrameRate
	}
	codec := fmt.Sprintf("avc1.%02x%02x%02x", sps[1], sps[2], sps[3])

	meta.CodecWidth = info.CodecSize.Width
	meta.CodecHeight = info.CodecSize.Height
	meta.PresentWidth = info.PresentSize.Width
	meta.PresentHeight = info.PresentSize.Height
	meta.Profile = info.ProfileString
	meta.Level = info.LevelString
	meta.BitDepth = info.BitDepth
	meta.ChromaFormat = info.ChromaFormat
	meta.SarRatio = info.SarRatio
	meta.FrameRate = frameRate
	meta.RefSampleDuration = float64(meta.Timescale) * float64(frameRate.FPSDen) / float64(frameRate.FPSNum)
	meta.Codec = codec
	meta.AVCC = append([]byte(nil), data...)
	d.naluLengthSize = rec.NaluLen

	log.Debugf("Flv: AVCDecoderConfigurationRecord %s %dx%d %s@%s %.3ffps",
		meta.Codec, meta.CodecWidth, meta.CodecHeight, meta.Profile, meta.Level, frameRate.FPS)
	d.sink.OnTrackMetadata(av.TrackVideo, meta)
}

func (d *Demuxer) parseAVCVideoData(data []byte, header av.VideoPacketHeader, tagTimestamp int32, tagPosition int64) {
	track, _ := d.videoState()
	dts := d.timestampBase + int64(tagTimestamp)

	nalus, err := h264.SplitNalus(data, d.naluLengthSize)
	if err != nil {
		if !errors.Is(err, h264.ErrNaluTruncated) {
			d.onError(av.FormatError, "Flv: Invalid NALU near timestamp %d: %v", dts, err)
			return
		}
		log.Warnf("Flv: Malformed Nalus near timestamp %d, DataSize: %d", dts, len(data))
	}
	if len(nalus) == 0 {
		return
	}

	keyframe := header.IsKeyFrame()
	units := make([]av.NALUnit, 0, len(nalus))
	length := 0
	for _, nalu := range nalus {
		if nalu.Type == h264.NaluTypeIdr {
			keyframe = true
		}
		units = append(units, av.NALUnit{
			Type: nalu.Type,
			Data: d.pool.Clone(nalu.Data),
		})
		length += len(nalu.Data)
	}

	cts := header.CompositionTime()
	sample := av.VideoSample{
		Units:      units,
		Length:     length,
		IsKeyframe: keyframe,
		DTS:        dts,
		CTS:        cts,
		PTS:        dts + int64(cts),
	}
	if keyframe {
		sample.FilePosition = tagPosition
	}
	track.Append(sample)
}
