package api

import (
	"encoding/json"
	"net/http"

	"github.com/gwuhaolin/flvpull/configure"
	"github.com/gwuhaolin/flvpull/core"

	jwtmiddleware "github.com/auth0/go-jwt-middleware"
	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"
)

// Response contains ResponseWriter, status and data
type Response struct {
	w      http.ResponseWriter
	Status int         `json:"status"`
	Data   interface{} `json:"data"`
}

// SendJSON send json data as response with status
func (r *Response) SendJSON() (int, error) {
	resp, _ := json.Marshal(r)
	r.w.Header().Set("Content-Type", "application/json")
	r.w.WriteHeader(r.Status)
	return r.w.Write(resp)
}

// StartFunc starts pulling url in the background and returns its session
type StartFunc func(url string) (*core.Session, error)

// Server serve the http api
type Server struct {
	streams *core.Streams
	start   StartFunc
}

// NewServer return a new Server. start may be nil, which disables
// /control/pull.
func NewServer(streams *core.Streams, start StartFunc) *Server {
	return &Server{
		streams: streams,
		start:   start,
	}
}

// JWTMiddleware is a jwt middleware
// If jwt.secret is specified in config, this middleware will be activated.
func JWTMiddleware(next http.Handler) http.Handler {
	isJWT := len(configure.Config.GetString("jwt.secret")) > 0
	if !isJWT {
		return next
	}

	log.Info("Using JWT middleware")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var algorithm jwt.SigningMethod
		if len(configure.Config.GetString("jwt.algorithm")) > 0 {
			algorithm = jwt.GetSigningMethod(configure.Config.GetString("jwt.algorithm"))
		}

		if algorithm == nil {
			algorithm = jwt.SigningMethodHS256
		}

		jwtMiddleware := jwtmiddleware.New(jwtmiddleware.Options{
			Extractor: jwtmiddleware.FromFirst(jwtmiddleware.FromAuthHeader, jwtmiddleware.FromParameter("jwt")),
			ValidationKeyGetter: func(token *jwt.Token) (interface{}, error) {
				return []byte(configure.Config.GetString("jwt.secret")), nil
			},
			SigningMethod: algorithm,
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err string) {
				res := &Response{
					w:      w,
					Status: 403,
					Data:   err,
				}
				res.SendJSON()
			},
		})

		jwtMiddleware.HandlerWithNext(w, r, next.ServeHTTP)
	})
}

// Handler returns the api routes behind the jwt middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/control/pull", s.handlePull)
	mux.HandleFunc("/control/stop", s.handleStop)
	mux.HandleFunc("/stat/livestat", s.getLiveStatics)
	mux.HandleFunc("/stat/session", s.getSession)
	return JWTMiddleware(mux)
}

type statics struct {
	Running  []core.Stat `json:"running"`
	Finished []core.Stat `json:"finished"`
}

// getLiveStatics get the statics of every session
func (s *Server) getLiveStatics(w http.ResponseWriter, req *http.Request) {
	res := &Response{
		w:      w,
		Data:   nil,
		Status: 200,
	}
	defer res.SendJSON()

	res.Data = statics{
		Running:  s.streams.List(),
		Finished: s.streams.Finished(),
	}
}

// http://127.0.0.1:8090/stat/session?id=Wq8r3mzQ1x0eR9yT
func (s *Server) getSession(w http.ResponseWriter, req *http.Request) {
	res := &Response{
		w:      w,
		Data:   nil,
		Status: 200,
	}
	defer res.SendJSON()

	id := req.URL.Query().Get("id")
	if id == "" {
		res.Status = 400
		res.Data = "url: /stat/session?id=<session id>"
		return
	}
	st, ok := s.streams.Stat(id)
	if !ok {
		res.Status = 404
		res.Data = "session not found"
		return
	}
	res.Data = st
}

// http://127.0.0.1:8090/control/pull?url=http://127.0.0.1:7001/live/movie.flv
func (s *Server) handlePull(w http.ResponseWriter, req *http.Request) {
	res := &Response{
		w:      w,
		Data:   nil,
		Status: 200,
	}
	defer res.SendJSON()

	if s.start == nil {
		res.Status = 403
		res.Data = "pull control disabled"
		return
	}
	url := req.URL.Query().Get("url")
	if url == "" {
		res.Status = 400
		res.Data = "url: /control/pull?url=<http-flv url>"
		return
	}
	log.Debugf("control pull: url=%s", url)

	session, err := s.start(url)
	if err != nil {
		res.Status = 500
		res.Data = err.Error()
		return
	}
	res.Data = session.ID
}

// http://127.0.0.1:8090/control/stop?id=Wq8r3mzQ1x0eR9yT
func (s *Server) handleStop(w http.ResponseWriter, req *http.Request) {
	res := &Response{
		w:      w,
		Data:   nil,
		Status: 200,
	}
	defer res.SendJSON()

	id := req.URL.Query().Get("id")
	session, ok := s.streams.Get(id)
	if !ok {
		res.Status = 404
		res.Data = "session not found"
		return
	}
	session.Stop()
	res.Data = "stopping " + id
}
