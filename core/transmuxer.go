package core

import (
	"fmt"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/gwuhaolin/flvpull/container/flv"

	log "github.com/sirupsen/logrus"
)

// Handler receives everything a Transmuxer reports. All calls come from the
// goroutine driving the loader.
type Handler interface {
	av.Sink
	OnIOError(err *av.LoaderError)
	OnLoadingComplete()
	// OnEarlyEOF reports a stream that ended with unconsumed bytes held
	OnEarlyEOF(unconsumed int)
}

// Options configures a Transmuxer
type Options struct {
	StashSize     int
	BufferSize    int
	Strict        bool
	TimestampBase int64
	// SPSParser replaces h264.ParseSPS when set
	SPSParser flv.SPSParser
}

// Transmuxer binds a loader to the assembler and the FLV demuxer. It
// implements av.LoaderHandler.
type Transmuxer struct {
	opts    Options
	handler Handler

	assembler *Assembler
	demuxer   *flv.Demuxer
	// unsupported is set once the header did not probe as FLV
	unsupported bool
}

// NewTransmuxer returns a Transmuxer reporting to h
func NewTransmuxer(opts Options, h Handler) (*Transmuxer, error) {
	if h == nil {
		return nil, fmt.Errorf("transmuxer: nil handler")
	}
	t := &Transmuxer{
		opts:    opts,
		handler: h,
	}
	t.assembler = NewAssembler(opts.StashSize, opts.BufferSize, t.parseChunks)
	return t, nil
}

// Demuxer returns the demuxer, nil until the header was probed
func (t *Transmuxer) Demuxer() *flv.Demuxer {
	return t.demuxer
}

// Assembler returns the reassembly buffer
func (t *Transmuxer) Assembler() *Assembler {
	return t.assembler
}

// OnDataArrival implements av.LoaderHandler
func (t *Transmuxer) OnDataArrival(chunk []byte, byteStart int64) {
	t.assembler.Submit(chunk, byteStart)
}

// OnContentLengthKnown implements av.LoaderHandler
func (t *Transmuxer) OnContentLengthKnown(length int64) {
	log.Debugf("Transmuxer: content length %d", length)
}

// OnComplete implements av.LoaderHandler
func (t *Transmuxer) OnComplete(from, to int64) {
	if remain := t.assembler.Flush(true); remain > 0 {
		t.handler.OnEarlyEOF(remain)
	}
	log.Debugf("Transmuxer: loading complete, range %d-%d", from, to)
	t.handler.OnLoadingComplete()
}

// OnError implements av.LoaderHandler
func (t *Transmuxer) OnError(err *av.LoaderError) {
	log.Errorf("Loader error, code = %d, msg = %s", err.Code, err.Msg)
	if err.Kind == av.LoaderEarlyEOF {
		// there is no range resume, the missing bytes are lost
		err = &av.LoaderError{Kind: av.LoaderUnrecoverableEarlyEOF, Code: err.Code, Msg: err.Msg}
	}
	t.assembler.Flush(false)
	t.handler.OnIOError(err)
}

func (t *Transmuxer) parseChunks(chunk []byte, byteStart int64) int {
	if t.unsupported {
		return len(chunk)
	}
	if t.demuxer == nil {
		if byteStart != 0 {
			log.Warnf("Transmuxer: chunk at %d arrived before the header, discarded", byteStart)
			return len(chunk)
		}
		if len(chunk) < flv.MinProbeSize {
			return 0
		}
		probe := flv.Probe(chunk)
		if !probe.Match {
			t.unsupported = true
			log.Error("Non-FLV, Unsupported media type!")
			t.handler.OnDemuxError(av.FormatUnsupported, "Non-FLV, Unsupported media type!")
			return len(chunk)
		}
		opts := []flv.Option{
			flv.WithStrict(t.opts.Strict),
			flv.WithTimestampBase(t.opts.TimestampBase),
		}
		if t.opts.SPSParser != nil {
			opts = append(opts, flv.WithSPSParser(t.opts.SPSParser))
		}
		d, err := flv.NewDemuxer(probe, t.handler, opts...)
		if err != nil {
			t.unsupported = true
			t.handler.OnDemuxError(av.FormatUnsupported, err.Error())
			return len(chunk)
		}
		t.demuxer = d
	}
	return t.demuxer.ParseChunks(chunk, byteStart)
}
