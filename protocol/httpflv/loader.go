package httpflv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gwuhaolin/flvpull/av"

	log "github.com/sirupsen/logrus"
)

const (
	readChunkSize = 64 * 1024
	minCheckEvery = 10 * time.Millisecond
)

// Loader fetches an HTTP-FLV stream with a streaming GET. It implements
// av.Loader; one Loader serves one Open at a time.
type Loader struct {
	client      *http.Client
	readTimeout time.Duration
	rw          *av.RWBase
	status      int32
}

// NewLoader returns a Loader using client, http.DefaultClient when nil. A
// body that delivers nothing for readTimeout is abandoned; zero disables the
// check.
func NewLoader(client *http.Client, readTimeout time.Duration) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:      client,
		readTimeout: readTimeout,
		rw:          av.NewRWBase(readTimeout),
	}
}

// Status implements av.Loader
func (l *Loader) Status() av.LoaderStatus {
	return av.LoaderStatus(atomic.LoadInt32(&l.status))
}

func (l *Loader) setStatus(s av.LoaderStatus) {
	atomic.StoreInt32(&l.status, int32(s))
}

// Open implements av.Loader
func (l *Loader) Open(parent context.Context, url string, h av.LoaderHandler) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	l.setStatus(av.StatusConnecting)
	l.rw.SetPreTime()
	var stalled int32
	if l.readTimeout > 0 {
		go l.watch(ctx, cancel, &stalled)
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return l.fail(h, &av.LoaderError{Kind: av.LoaderException, Code: -1, Msg: err.Error()})
	}
	req = req.WithContext(ctx)

	resp, err := l.client.Do(req)
	if err != nil {
		return l.abort(parent, h, &stalled, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return l.fail(h, &av.LoaderError{
			Kind: av.LoaderHTTPStatusCodeInvalid,
			Code: resp.StatusCode,
			Msg:  resp.Status,
		})
	}

	contentLength := resp.ContentLength
	if contentLength >= 0 {
		h.OnContentLengthKnown(contentLength)
	}
	l.setStatus(av.StatusBuffering)
	log.Debugf("httpflv: %s connected, content length %d", url, contentLength)

	buf := make([]byte, readChunkSize)
	var received int64
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			l.rw.RecRead(n)
			h.OnDataArrival(buf[:n], received)
			received += int64(n)
		}
		switch {
		case err == nil:
			continue
		case err == io.EOF && (contentLength <= 0 || received >= contentLength):
			l.setStatus(av.StatusComplete)
			h.OnComplete(0, received-1)
			return nil
		case err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF):
			if parent.Err() != nil || atomic.LoadInt32(&stalled) == 1 {
				return l.abort(parent, h, &stalled, err)
			}
			return l.fail(h, &av.LoaderError{
				Kind: av.LoaderEarlyEOF,
				Code: -1,
				Msg:  fmt.Sprintf("Fetch stream meet Early-EOF, %d of %d bytes", received, contentLength),
			})
		default:
			return l.abort(parent, h, &stalled, err)
		}
	}
}

// abort classifies a transport failure: a cancelled parent is returned
// as is, a stall is a ConnectingTimeout, anything else an Exception
func (l *Loader) abort(parent context.Context, h av.LoaderHandler, stalled *int32, err error) error {
	if atomic.LoadInt32(stalled) == 1 {
		return l.fail(h, &av.LoaderError{
			Kind: av.LoaderConnectingTimeout,
			Code: -1,
			Msg:  fmt.Sprintf("no data for %s", l.readTimeout),
		})
	}
	if parent.Err() != nil {
		l.setStatus(av.StatusIdle)
		return parent.Err()
	}
	return l.fail(h, &av.LoaderError{Kind: av.LoaderException, Code: -1, Msg: err.Error()})
}

func (l *Loader) fail(h av.LoaderHandler, err *av.LoaderError) error {
	l.setStatus(av.StatusError)
	h.OnError(err)
	return err
}

// watch cancels the request once nothing was read for readTimeout
func (l *Loader) watch(ctx context.Context, cancel context.CancelFunc, stalled *int32) {
	every := l.readTimeout / 4
	if every < minCheckEvery {
		every = minCheckEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !l.rw.Alive() {
				log.Warnf("httpflv: no data for %s, closing", l.readTimeout)
				atomic.StoreInt32(stalled, 1)
				cancel()
				return
			}
		}
	}
}
