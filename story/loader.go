package story

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultStoriesDir is the folder under the public root holding the collections.
	DefaultStoriesDir = "StoryofUs"
	// CollectionSuffix marks a city collection folder.
	CollectionSuffix = "故事集合"
	// StoryFile is the text file every story folder must contain.
	StoryFile = "story.txt"
	// PlaceholderImage is used for stories without an image.
	PlaceholderImage = "/placeholder-image.svg"

	defaultFolderNumber = "001"
)

var (
	folderNumberRegexp = regexp.MustCompile(`^(\d+)_`)
	imageExtensions    = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

// Source supplies the full, ordered story collection.
type Source interface {
	Stories(ctx context.Context) []Story
}

// ProblemKind classifies something the loader skipped or patched up.
type ProblemKind string

const (
	MissingStoryFile ProblemKind = "missing story file"
	UnreadableStory  ProblemKind = "unreadable story"
	InvalidStory     ProblemKind = "invalid story"
	MissingImage     ProblemKind = "missing image"
	DuplicateSlug    ProblemKind = "duplicate slug"
	UnreadableFolder ProblemKind = "unreadable folder"
)

// Problem describes one issue found while loading.
type Problem struct {
	Kind ProblemKind
	Path string
	Err  error
}

func (p Problem) String() string {
	if p.Err != nil {
		return fmt.Sprintf("%s: %s: %s", p.Kind, p.Path, p.Err)
	}
	return fmt.Sprintf("%s: %s", p.Kind, p.Path)
}

// Loader reads stories from a public asset folder. It keeps no state
// between calls, so it is safe for concurrent use.
type Loader struct {
	fsys       fs.FS
	storiesDir string
	log        *zap.Logger
}

// NewLoader returns a Loader reading storiesDir inside public. Image
// paths are reported relative to public.
func NewLoader(public fs.FS, storiesDir string, log *zap.Logger) *Loader {
	if storiesDir == "" {
		storiesDir = DefaultStoriesDir
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{fsys: public, storiesDir: path.Clean(storiesDir), log: log}
}

// Dir returns the stories folder, relative to the public root.
func (l *Loader) Dir() string {
	return l.storiesDir
}

// FS returns the public file system the loader reads.
func (l *Loader) FS() fs.FS {
	return l.fsys
}

// Stories reads every story from disk, ordered by city name and then by
// folder path. Stories that cannot be read are logged and left out.
func (l *Loader) Stories(ctx context.Context) []Story {
	stories, _ := l.Check(ctx)
	return stories
}

// Check reads every story like Stories does and also returns the
// problems found along the way.
func (l *Loader) Check(ctx context.Context) ([]Story, []Problem) {
	var (
		stories  []Story
		problems []Problem
	)
	report := func(p Problem) {
		problems = append(problems, p)
		switch p.Kind {
		case MissingStoryFile, MissingImage:
			l.log.Debug("load: skipped", zap.String("kind", string(p.Kind)), zap.String("path", p.Path))
		default:
			l.log.Warn("load: skipped", zap.String("kind", string(p.Kind)), zap.String("path", p.Path), zap.Error(p.Err))
		}
	}

	entries, err := fs.ReadDir(l.fsys, l.storiesDir)
	if err != nil {
		l.log.Error("load: cannot read stories directory", zap.String("path", l.storiesDir), zap.Error(err))
		return nil, append(problems, Problem{Kind: UnreadableFolder, Path: l.storiesDir, Err: err})
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), CollectionSuffix) {
			continue
		}
		cityPath := path.Join(l.storiesDir, entry.Name())
		if !l.isDir(entry, cityPath) {
			continue
		}
		city := strings.TrimSuffix(entry.Name(), CollectionSuffix)
		if city == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		stories = append(stories, l.loadCity(city, cityPath, report)...)
	}

	sort.Slice(stories, func(i, j int) bool {
		if stories[i].City != stories[j].City {
			return stories[i].City < stories[j].City
		}
		return stories[i].FolderPath < stories[j].FolderPath
	})

	seen := make(map[string]string, len(stories))
	for i := range stories {
		if first, ok := seen[stories[i].Slug]; ok {
			report(Problem{
				Kind: DuplicateSlug,
				Path: stories[i].FolderPath,
				Err:  fmt.Errorf("slug %q already used by %s", stories[i].Slug, first),
			})
			continue
		}
		seen[stories[i].Slug] = stories[i].FolderPath
	}
	return stories, problems
}

// loadCity reads all story folders of one collection.
func (l *Loader) loadCity(city, cityPath string, report func(Problem)) []Story {
	entries, err := fs.ReadDir(l.fsys, cityPath)
	if err != nil {
		report(Problem{Kind: UnreadableFolder, Path: cityPath, Err: err})
		return nil
	}
	var stories []Story
	for _, entry := range entries {
		storyPath := path.Join(cityPath, entry.Name())
		if !l.isDir(entry, storyPath) {
			continue
		}
		s, err := l.readStory(city, storyPath, report)
		if err != nil {
			switch {
			case errors.Is(err, fs.ErrNotExist):
				report(Problem{Kind: MissingStoryFile, Path: storyPath})
			case errors.Is(err, errNoTitle):
				report(Problem{Kind: InvalidStory, Path: storyPath, Err: err})
			default:
				report(Problem{Kind: UnreadableStory, Path: storyPath, Err: err})
			}
			continue
		}
		stories = append(stories, s)
	}
	return stories
}

// readStory builds the Story stored in storyPath.
func (l *Loader) readStory(city, storyPath string, report func(Problem)) (Story, error) {
	b, err := fs.ReadFile(l.fsys, path.Join(storyPath, StoryFile))
	if err != nil {
		return Story{}, fmt.Errorf("readStory: %w", err)
	}
	s, err := Parse(b)
	if err != nil {
		return Story{}, fmt.Errorf("readStory: %w", err)
	}
	s.Slug = Slug(city, path.Base(storyPath))
	s.ID = s.Slug
	s.City = city
	s.CityEn = CityNameEn(city)
	s.FolderPath = storyPath
	s.ImagePath = l.findImage(storyPath, report)
	return s, nil
}

// findImage returns the public path of the first visible image in dir, or
// the placeholder image when there is none.
func (l *Loader) findImage(dir string, report func(Problem)) string {
	entries, err := fs.ReadDir(l.fsys, dir)
	if err != nil {
		report(Problem{Kind: MissingImage, Path: dir, Err: err})
		return PlaceholderImage
	}
	for _, entry := range entries {
		// skip folders and hidden files such as "._photo.jpg"
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if hasImageExtension(entry.Name()) {
			return "/" + path.Join(dir, entry.Name())
		}
	}
	report(Problem{Kind: MissingImage, Path: dir})
	return PlaceholderImage
}

// isDir reports whether entry is a directory, following symbolic links.
func (l *Loader) isDir(entry fs.DirEntry, name string) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir()
	}
	fi, err := fs.Stat(l.fsys, name)
	return err == nil && fi.IsDir()
}

// hasImageExtension checks if the name ends in an image type, ignoring case.
func hasImageExtension(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Slug derives the slug of a story from its city and folder name.
func Slug(city, folder string) string {
	n := defaultFolderNumber
	if m := folderNumberRegexp.FindStringSubmatch(folder); m != nil {
		n = m[1]
	}
	return CitySlug(city) + "-" + n
}
