package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gwuhaolin/flvpull/av"
	"github.com/gwuhaolin/flvpull/configure"
	"github.com/gwuhaolin/flvpull/container/flv/flvtest"
	"github.com/gwuhaolin/flvpull/core"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replayLoader hands a whole stream over in one chunk
type replayLoader struct {
	stream []byte
	status av.LoaderStatus
}

func (l *replayLoader) Open(ctx context.Context, url string, h av.LoaderHandler) error {
	h.OnDataArrival(l.stream, 0)
	l.status = av.StatusComplete
	h.OnComplete(0, int64(len(l.stream)-1))
	return nil
}

func (l *replayLoader) Status() av.LoaderStatus {
	return l.status
}

type response struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func get(t *testing.T, h http.Handler, target string) (int, response) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var res response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, res
}

func newStreams(t *testing.T) (*core.Streams, *core.Session, *core.Session) {
	ss := core.NewStreams(time.Minute)
	done, err := core.NewSession("http://example.com/live/done.flv", &replayLoader{stream: flvtest.Stream(6)}, core.Options{})
	require.NoError(t, err)
	require.NoError(t, ss.Pull(context.Background(), done))

	running, err := core.NewSession("http://example.com/live/running.flv", &replayLoader{}, core.Options{})
	require.NoError(t, err)
	ss.Add(running)
	return ss, done, running
}

func TestLiveStatics(t *testing.T) {
	ss, done, running := newStreams(t)
	h := NewServer(ss, nil).Handler()

	code, res := get(t, h, "/stat/livestat")
	assert.Equal(t, http.StatusOK, code)
	var st statics
	require.NoError(t, json.Unmarshal(res.Data, &st))
	require.Len(t, st.Running, 1)
	assert.Equal(t, running.ID, st.Running[0].ID)
	require.Len(t, st.Finished, 1)
	assert.Equal(t, done.ID, st.Finished[0].ID)
	assert.Equal(t, 6, st.Finished[0].VideoSamples)
	assert.Equal(t, "avc1.640028", st.Finished[0].Video.Codec)
}

func TestSessionStat(t *testing.T) {
	ss, done, _ := newStreams(t)
	h := NewServer(ss, nil).Handler()

	code, res := get(t, h, "/stat/session?id="+done.ID)
	assert.Equal(t, http.StatusOK, code)
	var st core.Stat
	require.NoError(t, json.Unmarshal(res.Data, &st))
	assert.Equal(t, done.URL, st.URL)
	assert.Equal(t, "complete", st.Status)
	assert.Equal(t, 6, st.AudioSamples)

	code, _ = get(t, h, "/stat/session?id=nope")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, h, "/stat/session")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestControl(t *testing.T) {
	ss, _, running := newStreams(t)
	var started []string
	start := func(url string) (*core.Session, error) {
		if url == "http://bad" {
			return nil, errors.New("refused")
		}
		started = append(started, url)
		s, err := core.NewSession(url, &replayLoader{}, core.Options{})
		if err != nil {
			return nil, err
		}
		ss.Add(s)
		return s, nil
	}
	h := NewServer(ss, start).Handler()

	code, res := get(t, h, "/control/pull?url=http://example.com/live/new.flv")
	assert.Equal(t, http.StatusOK, code)
	var id string
	require.NoError(t, json.Unmarshal(res.Data, &id))
	_, ok := ss.Get(id)
	assert.True(t, ok)
	assert.Equal(t, []string{"http://example.com/live/new.flv"}, started)

	code, _ = get(t, h, "/control/pull")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, h, "/control/pull?url=http://bad")
	assert.Equal(t, http.StatusInternalServerError, code)

	code, _ = get(t, h, "/control/stop?id="+running.ID)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, context.Canceled, running.Run(context.Background()))
	code, _ = get(t, h, "/control/stop?id=nope")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, NewServer(ss, nil).Handler(), "/control/pull?url=http://example.com/x.flv")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestJWTMiddleware(t *testing.T) {
	configure.Config.Set("jwt.secret", "testsecret")
	configure.Config.Set("jwt.algorithm", "HS256")
	defer configure.Config.Set("jwt.secret", "")

	ss, _, _ := newStreams(t)
	h := NewServer(ss, nil).Handler()

	code, _ := get(t, h, "/stat/livestat")
	assert.Equal(t, http.StatusForbidden, code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"}).SignedString([]byte("testsecret"))
	require.NoError(t, err)
	code, _ = get(t, h, "/stat/livestat?jwt="+token)
	assert.Equal(t, http.StatusOK, code)

	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"}).SignedString([]byte("other"))
	require.NoError(t, err)
	code, _ = get(t, h, "/stat/livestat?jwt="+bad)
	assert.Equal(t, http.StatusForbidden, code)
}
