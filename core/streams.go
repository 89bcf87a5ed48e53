package core

import (
	"context"
	"sort"
	"time"

	cmap "github.com/orcaman/concurrent-map"
	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

// Streams is the registry of running sessions plus a snapshot of every
// finished one, kept for finishedTTL
type Streams struct {
	active   cmap.ConcurrentMap
	finished *cache.Cache
}

// NewStreams returns an empty registry. A non-positive finishedTTL keeps
// finished snapshots forever.
func NewStreams(finishedTTL time.Duration) *Streams {
	expiration, cleanup := finishedTTL, finishedTTL
	if finishedTTL <= 0 {
		expiration, cleanup = cache.NoExpiration, 0
	}
	return &Streams{
		active:   cmap.New(),
		finished: cache.New(expiration, cleanup),
	}
}

// Add registers s as running
func (ss *Streams) Add(s *Session) {
	ss.active.Set(s.ID, s)
}

// Get returns the running session with id
func (ss *Streams) Get(id string) (*Session, bool) {
	v, ok := ss.active.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Remove unregisters a running session and keeps its final Stat
func (ss *Streams) Remove(id string) {
	s, ok := ss.Get(id)
	if !ok {
		return
	}
	ss.finished.SetDefault(id, s.Stat())
	ss.active.Remove(id)
	log.Debugf("session %s moved to finished", id)
}

// Pull registers s, runs it and unregisters it once it returns
func (ss *Streams) Pull(ctx context.Context, s *Session) error {
	ss.Add(s)
	defer ss.Remove(s.ID)
	return s.Run(ctx)
}

// List returns the Stat of every running session, oldest first
func (ss *Streams) List() []Stat {
	ret := make([]Stat, 0, ss.active.Count())
	for item := range ss.active.IterBuffered() {
		if s, ok := item.Val.(*Session); ok {
			ret = append(ret, s.Stat())
		}
	}
	sortStats(ret)
	return ret
}

// Finished returns the snapshots of the finished sessions not expired yet
func (ss *Streams) Finished() []Stat {
	items := ss.finished.Items()
	ret := make([]Stat, 0, len(items))
	for _, item := range items {
		if st, ok := item.Object.(Stat); ok {
			ret = append(ret, st)
		}
	}
	sortStats(ret)
	return ret
}

// Stat looks id up among running then finished sessions
func (ss *Streams) Stat(id string) (Stat, bool) {
	if s, ok := ss.Get(id); ok {
		return s.Stat(), true
	}
	if v, ok := ss.finished.Get(id); ok {
		return v.(Stat), true
	}
	return Stat{}, false
}

func sortStats(stats []Stat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].StartedAt.Equal(stats[j].StartedAt) {
			return stats[i].ID < stats[j].ID
		}
		return stats[i].StartedAt.Before(stats[j].StartedAt)
	})
}
