package story

import (
	"context"
	"math/rand/v2"
	"sync"
)

// Description is the bilingual blurb shown on a city page.
type Description struct {
	Text   string `toml:"description"`
	TextEn string `toml:"descriptionen"`
}

// Library answers the queries pages are built from. Every query reads
// the whole collection from its Source again.
type Library struct {
	src          Source
	descriptions map[string]Description // by city slug
	intn         func(n int) int
	shuffle      func(n int, swap func(i, j int))
}

// Option configures a Library.
type Option func(*Library)

// WithDescriptions attaches city descriptions, keyed by city slug.
func WithDescriptions(d map[string]Description) Option {
	return func(lib *Library) {
		lib.descriptions = d
	}
}

// WithRand makes LatestStories draw from r instead of the global source.
func WithRand(r *rand.Rand) Option {
	var mu sync.Mutex
	return func(lib *Library) {
		lib.intn = func(n int) int {
			mu.Lock()
			defer mu.Unlock()
			return r.IntN(n)
		}
		lib.shuffle = func(n int, swap func(i, j int)) {
			mu.Lock()
			defer mu.Unlock()
			r.Shuffle(n, swap)
		}
	}
}

// NewLibrary returns a Library reading from src.
func NewLibrary(src Source, opts ...Option) *Library {
	lib := &Library{
		src:     src,
		intn:    rand.IntN,
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// AllStories returns every story in loader order.
func (lib *Library) AllStories(ctx context.Context) []Story {
	return lib.src.Stories(ctx)
}

// StoryBySlug returns the story with the given slug, or nil.
func (lib *Library) StoryBySlug(ctx context.Context, slug string) *Story {
	for _, s := range lib.src.Stories(ctx) {
		if s.Slug == slug {
			return &s
		}
	}
	return nil
}

// StoriesByCity returns the stories of a city, given either its Chinese
// name or its slug.
func (lib *Library) StoriesByCity(ctx context.Context, city string) []Story {
	return byCity(lib.src.Stories(ctx), city)
}

func byCity(all []Story, city string) []Story {
	var r []Story
	for _, s := range all {
		if s.City == city || CitySlug(s.City) == city {
			r = append(r, s)
		}
	}
	return r
}

// AllCities groups the stories by city. There is one City for every city
// name seen in the stories, in story order.
func (lib *Library) AllCities(ctx context.Context) []City {
	return lib.cities(lib.src.Stories(ctx))
}

func (lib *Library) cities(all []Story) []City {
	var (
		r     []City
		index = make(map[string]int)
	)
	for _, s := range all {
		if i, ok := index[s.City]; ok {
			r[i].StoryCount++
			continue
		}
		slug := CitySlug(s.City)
		c := City{
			Name:       s.City,
			NameEn:     CityNameEn(s.City),
			Slug:       slug,
			StoryCount: 1,
			HeroImage:  HeroImage(slug),
		}
		if d, ok := lib.descriptions[slug]; ok {
			c.Description, c.DescriptionEn = d.Text, d.TextEn
		}
		index[s.City] = len(r)
		r = append(r, c)
	}
	return r
}

// CityBySlug returns the city with the given slug, or nil when no story
// belongs to it.
func (lib *Library) CityBySlug(ctx context.Context, slug string) *City {
	for _, c := range lib.AllCities(ctx) {
		if c.Slug == slug {
			return &c
		}
	}
	return nil
}

// LatestStories picks n random stories for the home page, spreading the
// picks over the cities. It takes one unpicked story from each city in
// turn until it has n or runs out of rounds, then fills up from the rest
// and shuffles the result. It returns min(n, total) stories.
func (lib *Library) LatestStories(ctx context.Context, n int) []Story {
	if n <= 0 {
		return nil
	}
	all := lib.src.Stories(ctx)
	if len(all) == 0 {
		return nil
	}

	var (
		order    []string
		members  = make(map[string][]int)
		picked   = make([]bool, len(all))
		selected []int
	)
	for i, s := range all {
		if _, ok := members[s.City]; !ok {
			order = append(order, s.City)
		}
		members[s.City] = append(members[s.City], i)
	}

	maxSteps := len(order) * 10
	for step := 0; len(selected) < n && len(selected) < len(all); step++ {
		if step > maxSteps {
			break
		}
		var available []int
		for _, i := range members[order[step%len(order)]] {
			if !picked[i] {
				available = append(available, i)
			}
		}
		if len(available) == 0 {
			continue
		}
		i := available[lib.intn(len(available))]
		picked[i] = true
		selected = append(selected, i)
	}

	if len(selected) < n {
		var rest []int
		for i := range all {
			if !picked[i] {
				rest = append(rest, i)
			}
		}
		lib.shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		for _, i := range rest {
			if len(selected) == n {
				break
			}
			selected = append(selected, i)
		}
	}

	lib.shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	r := make([]Story, len(selected))
	for k, i := range selected {
		r[k] = all[i]
	}
	return r
}

// RelatedStories returns up to n other stories from the city of s, in
// loader order.
func (lib *Library) RelatedStories(ctx context.Context, s Story, n int) []Story {
	if n <= 0 {
		return nil
	}
	var r []Story
	for _, o := range lib.StoriesByCity(ctx, s.City) {
		if o.Slug == s.Slug {
			continue
		}
		r = append(r, o)
		if len(r) == n {
			break
		}
	}
	return r
}
