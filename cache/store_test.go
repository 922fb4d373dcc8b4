package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/humblebanana/StoryofUS/story"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// countingSource counts how often the collection is read.
type countingSource struct {
	calls   atomic.Int32
	stories []story.Story
}

func (s *countingSource) Stories(context.Context) []story.Story {
	s.calls.Add(1)
	return s.stories
}

func testStories() []story.Story {
	return []story.Story{
		{ID: "chengdu-001", Slug: "chengdu-001", Title: "茶馆", TitleEn: "Teahouse", City: "成都", CityEn: "Chengdu",
			Content: "喝茶。", ContentEn: "Tea.", ImagePath: "/StoryofUs/成都故事集合/001_茶馆/a.jpg",
			Location: "人民公园", FolderPath: "StoryofUs/成都故事集合/001_茶馆"},
		{ID: "wuhan-001", Slug: "wuhan-001", Title: "面", TitleEn: "Noodles", City: "武汉", CityEn: "Wuhan",
			ImagePath: story.PlaceholderImage, FolderPath: "StoryofUs/武汉故事集合/001_面"},
	}
}

func TestStoreCaches(t *testing.T) {
	src := &countingSource{stories: testStories()}
	s := New(src, "StoryofUs", Config{SizeInBytes: 1 << 20, Duration: time.Hour}, zaptest.NewLogger(t))
	require.True(t, s.Enabled())
	ctx := context.Background()

	first := s.Stories(ctx)
	second := s.Stories(ctx)
	require.Equal(t, int32(1), src.calls.Load())
	if diff := cmp.Diff(src.stories, first); diff != "" {
		t.Errorf("cached stories differ (-want +got):\n%s", diff)
	}
	require.Equal(t, first, second)
}

// walkingSource stops early when its context ends, like story.Loader.
type walkingSource struct {
	calls   atomic.Int32
	stories []story.Story
}

func (s *walkingSource) Stories(ctx context.Context) []story.Story {
	s.calls.Add(1)
	if ctx.Err() != nil {
		return nil
	}
	return s.stories
}

func TestStoreCanceledLoadNotCached(t *testing.T) {
	src := &walkingSource{stories: testStories()}
	s := New(src, "StoryofUs", Config{SizeInBytes: 1 << 20, Duration: time.Hour}, zaptest.NewLogger(t))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	require.Empty(t, s.Stories(canceled))

	got := s.Stories(context.Background())
	if diff := cmp.Diff(src.stories, got); diff != "" {
		t.Errorf("stories after canceled load differ (-want +got):\n%s", diff)
	}

	// the complete collection is the one kept
	calls := src.calls.Load()
	require.Len(t, s.Stories(context.Background()), 2)
	require.Equal(t, calls, src.calls.Load())
}

func TestStoreInvalidate(t *testing.T) {
	src := &countingSource{stories: testStories()}
	s := New(src, "StoryofUs", Config{SizeInBytes: 1 << 20, Duration: time.Hour}, nil)
	ctx := context.Background()

	s.Stories(ctx)
	s.Invalidate()
	s.Stories(ctx)
	s.Stories(ctx)
	require.Equal(t, int32(2), src.calls.Load())
}

func TestStoreDisabled(t *testing.T) {
	src := &countingSource{stories: testStories()}
	s := New(src, "StoryofUs", Config{SizeInBytes: 1 << 20}, nil)
	require.False(t, s.Enabled())

	for range 3 {
		require.Equal(t, src.stories, s.Stories(context.Background()))
	}
	require.Equal(t, int32(3), src.calls.Load())
}

func TestStoreEmptyCollection(t *testing.T) {
	src := &countingSource{}
	s := New(src, "StoryofUs", Config{SizeInBytes: 1 << 20, Duration: time.Hour}, nil)
	require.Empty(t, s.Stories(context.Background()))
	require.Empty(t, s.Stories(context.Background()))
	require.Equal(t, int32(1), src.calls.Load())
}

func TestStoreConcurrent(t *testing.T) {
	src := &countingSource{stories: testStories()}
	s := New(src, "StoryofUs", Config{GroupName: "concurrent", SizeInBytes: 1 << 20, Duration: time.Hour}, nil)

	const count = 8
	var wg sync.WaitGroup
	wg.Add(count)
	for range count {
		go func() {
			defer wg.Done()
			if got := s.Stories(context.Background()); len(got) != 2 {
				t.Errorf("got %d stories, want 2", len(got))
			}
		}()
	}
	wg.Wait()
}

func TestStoreKey(t *testing.T) {
	s := New(&countingSource{}, "StoryofUs", Config{SizeInBytes: 1 << 20, Duration: time.Minute}, nil)
	now := time.Now()
	k := s.key(now)
	require.Equal(t, k, s.key(now))
	require.NotEqual(t, k, s.key(now.Add(time.Minute)))
	s.Invalidate()
	require.NotEqual(t, k, s.key(now))
}

func TestQuantize(t *testing.T) {
	require.Zero(t, quantize(time.Now(), 0, "x"))

	base := time.Unix(1_700_000_000, 0)
	d := 10 * time.Second
	q := quantize(base, d, "StoryofUs")
	require.Equal(t, q+1, quantize(base.Add(d), d, "StoryofUs"))

	// every instant in one bucket width maps to at most two buckets
	seen := make(map[int64]bool)
	for i := range 10 {
		seen[quantize(base.Add(time.Duration(i)*time.Second), d, "StoryofUs")] = true
	}
	require.LessOrEqual(t, len(seen), 2)
}
