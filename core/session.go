package core

import (
	"context"
	"sync"
	"time"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/gwuhaolin/flvpull/utils/uid"

	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
)

// Stat is a point-in-time view of a Session
type Stat struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Status          string            `json:"status"`
	StartedAt       time.Time         `json:"started_at"`
	ContentLength   int64             `json:"content_length"`
	BytesReceived   int64             `json:"bytes_received"`
	Chunks          int64             `json:"chunks"`
	AudioSamples    int               `json:"audio_samples"`
	AudioBytes      int               `json:"audio_bytes"`
	VideoSamples    int               `json:"video_samples"`
	VideoBytes      int               `json:"video_bytes"`
	Keyframes       int               `json:"keyframes"`
	Audio           *av.AudioMetadata `json:"audio,omitempty"`
	Video           *av.VideoMetadata `json:"video,omitempty"`
	DemuxErrors     int               `json:"demux_errors"`
	LastDemuxError  string            `json:"last_demux_error,omitempty"`
	UnconsumedAtEOF int               `json:"unconsumed_at_eof"`
	Error           string            `json:"error,omitempty"`
}

// Session pulls one stream through a loader into a Transmuxer and keeps
// what it reported. It is the default Handler.
type Session struct {
	ID  string
	URL string

	loader av.Loader
	tm     *Transmuxer
	rw     *av.RWBase
	log    *log.Entry

	// lock guards everything below and the transmuxer state; Handler
	// callbacks run with it held
	lock          sync.RWMutex
	startedAt     time.Time
	contentLength int64
	audio         *av.AudioMetadata
	video         *av.VideoMetadata
	demuxErrors   int
	lastDemuxErr  string
	unconsumed    int
	ioErr         *av.LoaderError
	complete      bool
	cancel        context.CancelFunc
	stopped       bool
}

// NewSession returns a Session that will fetch url with loader
func NewSession(url string, loader av.Loader, opts Options) (*Session, error) {
	s := &Session{
		ID:            uid.NewID(),
		URL:           url,
		loader:        loader,
		rw:            av.NewRWBase(time.Hour),
		contentLength: -1,
	}
	s.log = log.WithFields(log.Fields{
		"session": s.ID,
		"url":     url,
	})
	tm, err := NewTransmuxer(opts, s)
	if err != nil {
		return nil, err
	}
	s.tm = tm
	return s, nil
}

// Run fetches the stream and blocks until it ends, fails or ctx is done
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.lock.Lock()
	if s.stopped {
		s.lock.Unlock()
		return context.Canceled
	}
	s.startedAt = time.Now()
	s.cancel = cancel
	s.lock.Unlock()

	s.log.Info("pull started")
	err := s.loader.Open(ctx, s.URL, s)
	if err != nil {
		s.log.WithError(err).Warn("pull ended")
	} else {
		s.log.Info("pull finished")
	}
	return err
}

// Stop cancels a running pull, or prevents a later Run from starting
func (s *Session) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
}

// OnDataArrival implements av.LoaderHandler
func (s *Session) OnDataArrival(chunk []byte, byteStart int64) {
	s.rw.RecRead(len(chunk))
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tm.OnDataArrival(chunk, byteStart)
}

// OnContentLengthKnown implements av.LoaderHandler
func (s *Session) OnContentLengthKnown(length int64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.contentLength = length
	s.tm.OnContentLengthKnown(length)
}

// OnComplete implements av.LoaderHandler
func (s *Session) OnComplete(from, to int64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tm.OnComplete(from, to)
}

// OnError implements av.LoaderHandler
func (s *Session) OnError(err *av.LoaderError) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tm.OnError(err)
}

// OnTrackMetadata implements Handler
func (s *Session) OnTrackMetadata(track av.TrackType, meta av.TrackMetadata) {
	switch m := meta.(type) {
	case *av.AudioMetadata:
		c := *m
		s.audio = &c
	case *av.VideoMetadata:
		c := *m
		s.video = &c
	}
	s.log.WithField("track", track).Infof("track metadata, codec %s", meta.CodecString())
	if log.IsLevelEnabled(log.DebugLevel) {
		s.log.Debugf("%# v", pretty.Formatter(meta))
	}
}

// OnDemuxError implements Handler
func (s *Session) OnDemuxError(kind av.DemuxErrorKind, msg string) {
	s.demuxErrors++
	s.lastDemuxErr = string(kind) + ": " + msg
	s.log.WithField("kind", kind).Warn(msg)
}

// OnIOError implements Handler
func (s *Session) OnIOError(err *av.LoaderError) {
	s.ioErr = err
	s.log.WithError(err).Error("loader failed")
}

// OnLoadingComplete implements Handler
func (s *Session) OnLoadingComplete() {
	s.complete = true
}

// OnEarlyEOF implements Handler
func (s *Session) OnEarlyEOF(unconsumed int) {
	s.unconsumed = unconsumed
	s.log.Warnf("stream ended early, %d bytes unconsumed", unconsumed)
}

// Stat returns the current statistics
func (s *Session) Stat() Stat {
	bytes, chunks := s.rw.Received()

	s.lock.RLock()
	defer s.lock.RUnlock()

	st := Stat{
		ID:              s.ID,
		URL:             s.URL,
		Status:          s.loader.Status().String(),
		StartedAt:       s.startedAt,
		ContentLength:   s.contentLength,
		BytesReceived:   bytes,
		Chunks:          chunks,
		DemuxErrors:     s.demuxErrors,
		LastDemuxError:  s.lastDemuxErr,
		UnconsumedAtEOF: s.unconsumed,
	}
	if s.audio != nil {
		c := *s.audio
		st.Audio = &c
	}
	if s.video != nil {
		c := *s.video
		st.Video = &c
	}
	if s.ioErr != nil {
		st.Error = s.ioErr.Error()
	}
	if d := s.tm.Demuxer(); d != nil {
		if at := d.AudioTrack(); at != nil {
			st.AudioSamples = len(at.Samples)
			st.AudioBytes = at.Length
		}
		if vt := d.VideoTrack(); vt != nil {
			st.VideoSamples = len(vt.Samples)
			st.VideoBytes = vt.Length
			for i := range vt.Samples {
				if vt.Samples[i].IsKeyframe {
					st.Keyframes++
				}
			}
		}
	}
	return st
}

// Complete reports whether the loader finished the whole stream
func (s *Session) Complete() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.complete
}

// Tracks calls fn with the demuxed tracks, either may be nil. fn must not
// retain the tracks.
func (s *Session) Tracks(fn func(audio *av.AudioTrack, video *av.VideoTrack)) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	d := s.tm.Demuxer()
	if d == nil {
		fn(nil, nil)
		return
	}
	fn(d.AudioTrack(), d.VideoTrack())
}
