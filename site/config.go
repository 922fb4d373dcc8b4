package site

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/humblebanana/StoryofUS/story"
	"github.com/pelletier/go-toml/v2"
)

// ConfigFile is the name of the site configuration file in the site root.
const ConfigFile = "site.toml"

const (
	defaultTitle  = "Story of Us"
	defaultLatest = 3
)

// Config contains configuration data from the site.toml file.
type Config struct {
	Title         string                       `toml:"title"`
	BaseURL       string                       `toml:"baseurl"`    // prefix for sitemap entries
	StoriesDir    string                       `toml:"storiesdir"` // relative to the public folder
	Latest        int                          `toml:"latest"`     // stories on the home page
	Expires       Duration                     `toml:"expires"`
	StaticExpires Duration                     `toml:"staticexpires"`
	Headers       map[string]string            `toml:"headers"`
	Cities        map[string]story.Description `toml:"cities"` // by city slug
}

// LoadConfig reads site.toml from fsys. It is not an error if the file
// does not exist; the defaults are returned instead.
func LoadConfig(fsys fs.FS) (*Config, error) {
	var cfg Config
	b, err := fs.ReadFile(fsys, ConfigFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("LoadConfig: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("LoadConfig: %w", err)
		}
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.StoriesDir == "" {
		cfg.StoriesDir = story.DefaultStoriesDir
	}
	if cfg.Latest <= 0 {
		cfg.Latest = defaultLatest
	}
}

// Duration is a time.Duration written as a string like "5m" in TOML.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	p, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(p)
	return nil
}
