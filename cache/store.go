/*
Package cache keeps the story collection in a groupcache group so that pages
do not walk the stories folder on every request.

groupcache does not support expiration, so keys carry a quantized time
bucket: a cached collection is reloaded roughly every Duration. Keys also
carry a generation number that Invalidate bumps, which is how the Watcher
makes edits on disk show up immediately. A Duration of 0 turns the cache
off and every call goes straight to the source.
*/
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/golang/groupcache"
	"github.com/google/uuid"
	"github.com/humblebanana/StoryofUS/story"
	"go.uber.org/zap"
)

// Config holds the groupcache parameters of a Store.
type Config struct {
	GroupName   string        // prefix of the groupcache group name
	SizeInBytes int64         // cache size
	Duration    time.Duration // expiry; 0 disables caching
}

// Store is a story.Source that caches the collection read from another
// Source. It is safe for concurrent use.
type Store struct {
	src      story.Source
	root     string
	duration time.Duration
	group    *groupcache.Group
	gen      atomic.Uint64
	log      *zap.Logger
}

// collection is the gob-encoded cache value.
type collection struct {
	Stories []story.Story
}

// New creates a Store around src. root names the collection in cache keys,
// normally the stories folder.
func New(src story.Source, root string, cfg Config, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		src:      src,
		root:     root,
		duration: cfg.Duration,
		log:      log,
	}
	if cfg.Duration <= 0 {
		return s
	}
	name := cfg.GroupName
	if name == "" {
		name = "stories"
	}
	// groupcache panics when a group name is registered twice
	name += "-" + uuid.NewString()
	s.group = groupcache.NewGroup(name, cfg.SizeInBytes, groupcache.GetterFunc(s.load))
	return s
}

// Enabled reports whether the store caches anything.
func (s *Store) Enabled() bool {
	return s.group != nil
}

// Invalidate makes the next call read the source again.
func (s *Store) Invalidate() {
	n := s.gen.Add(1)
	s.log.Debug("Invalidate: new generation", zap.Uint64("generation", n))
}

// Stories returns the cached collection, loading it when needed. When the
// cache fails the source is read directly.
func (s *Store) Stories(ctx context.Context) []story.Story {
	if s.group == nil {
		return s.src.Stories(ctx)
	}
	stories, err := s.cachedStories(ctx)
	if err != nil {
		s.log.Warn("Stories: cache failed, reading source", zap.Error(err))
		return s.src.Stories(ctx)
	}
	return stories
}

func (s *Store) key(now time.Time) string {
	q := make(url.Values, 3)
	q.Set("root", s.root)
	q.Set("t", strconv.FormatInt(quantize(now, s.duration, s.root), 10))
	q.Set("gen", strconv.FormatUint(s.gen.Load(), 10))
	return q.Encode()
}

func (s *Store) cachedStories(ctx context.Context) ([]story.Story, error) {
	var (
		data []byte
		c    collection
	)
	err := s.group.Get(ctx, s.key(time.Now()), groupcache.AllocatingByteSliceSink(&data))
	if err != nil {
		return nil, fmt.Errorf("cachedStories: %w", err)
	}
	err = gob.NewDecoder(bytes.NewReader(data)).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("cachedStories: %w", err)
	}
	return c.Stories, nil
}

// load is the groupcache getter.
func (s *Store) load(ctx context.Context, key string, dest groupcache.Sink) error {
	q, err := url.ParseQuery(key)
	if err != nil {
		return fmt.Errorf("stories group: %w", err)
	}
	start := time.Now()
	c := collection{Stories: s.src.Stories(ctx)}
	// a canceled load may be partial and must not be cached
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stories group: %w", err)
	}
	s.log.Debug("load: read stories",
		zap.String("root", q.Get("root")),
		zap.String("generation", q.Get("gen")),
		zap.Int("count", len(c.Stories)),
		zap.Duration("elapsed", time.Since(start)))

	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(c)
	if err != nil {
		return fmt.Errorf("stories group: %w", err)
	}
	return dest.SetBytes(buf.Bytes())
}
