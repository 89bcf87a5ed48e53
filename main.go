package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gwuhaolin/flvpull/configure"
	"github.com/gwuhaolin/flvpull/core"
	"github.com/gwuhaolin/flvpull/protocol/api"
	"github.com/gwuhaolin/flvpull/protocol/httpflv"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// VERSION is the version of flvpull
var VERSION = "master"

type app struct {
	ctx     context.Context
	streams *core.Streams
	opts    core.Options
	client  *http.Client
}

func (a *app) newSession(url string) (*core.Session, error) {
	loader := httpflv.NewLoader(a.client, configure.ReadTimeout())
	return core.NewSession(url, loader, a.opts)
}

func (a *app) pull(s *core.Session) {
	if err := a.streams.Pull(a.ctx, s); err != nil && !errors.Is(err, context.Canceled) {
		log.WithField("session", s.ID).Error("pull failed: ", err)
	}
	st, _ := a.streams.Stat(s.ID)
	log.WithFields(log.Fields{
		"session": st.ID,
		"url":     st.URL,
		"status":  st.Status,
		"bytes":   st.BytesReceived,
		"audio":   st.AudioSamples,
		"video":   st.VideoSamples,
		"errors":  st.DemuxErrors,
	}).Info("pull done")
}

// start is the api StartFunc: the pull outlives the request
func (a *app) start(url string) (*core.Session, error) {
	s, err := a.newSession(url)
	if err != nil {
		return nil, err
	}
	a.streams.Add(s)
	go a.pull(s)
	return s, nil
}

func startAPI(ctx context.Context, g *errgroup.Group, a *app) {
	apiAddr := configure.Config.GetString("api_addr")
	if apiAddr == "" {
		return
	}
	ln, err := net.Listen("tcp", apiAddr)
	if err != nil {
		log.Fatal(err)
	}
	srv := &http.Server{
		Handler: api.NewServer(a.streams, a.start).Handler(),
	}
	g.Go(func() error {
		log.Info("HTTP-API listen On ", apiAddr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("flvpull panic: ", r)
			time.Sleep(1 * time.Second)
		}
	}()

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if err := configure.Init(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	cfg, err := configure.Current()
	if err != nil {
		log.Fatal(err)
	}

	log.Infof(`
     ______ __ _   __ ____          __ __
    / ____// /| | / // __ \ __  __ / // /
   / /_   / / | |/ // /_/ // / / // // /
  / __/  / /__|   // ____// /_/ // // /
 /_/    /____/|__//_/     \__,_//_//_/
        version: %s
	`, VERSION)

	if len(cfg.Pull) == 0 && cfg.APIAddr == "" {
		log.Warn("nothing to pull and api_addr is empty, exiting")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down: ", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)
	a := &app{
		ctx:     ctx,
		streams: core.NewStreams(configure.FinishedTTL()),
		opts: core.Options{
			StashSize:  cfg.StashSize,
			BufferSize: cfg.BufferSize,
			Strict:     cfg.Strict,
		},
		client: &http.Client{},
	}

	startAPI(ctx, g, a)

	for _, url := range cfg.Pull {
		s, err := a.newSession(url)
		if err != nil {
			log.Error(err)
			continue
		}
		g.Go(func() error {
			a.pull(s)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("flvpull exit: ", err)
	}
}
