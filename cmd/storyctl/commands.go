package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/humblebanana/StoryofUS/logger"
	"github.com/humblebanana/StoryofUS/site"
	"github.com/humblebanana/StoryofUS/story"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errProblems is returned by check when the folder has blocking problems.
var errProblems = errors.New("stories have problems")

// app holds what every command needs once the flags are parsed.
type app struct {
	root     string
	public   string
	stories  string
	logLevel string

	log    *zap.Logger
	loader *story.Loader
	lib    *story.Library
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "storyctl",
		Short:         "Inspect the stories of a Story of Us site",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	f := cmd.PersistentFlags()
	f.StringVar(&a.root, "root", envOr("STORYOFUS_ROOT", "."), "Root of web site.")
	f.StringVar(&a.public, "public", envOr("STORYOFUS_PUBLIC", "public"), "Public asset folder, relative to the root.")
	f.StringVar(&a.stories, "stories", "", "Stories folder inside the public folder (default from site.toml).")
	f.StringVar(&a.logLevel, "loglevel", "warn", "Log level: debug, info, warn or error.")

	cmd.AddCommand(
		a.listCmd(),
		a.citiesCmd(),
		a.showCmd(),
		a.latestCmd(),
		a.checkCmd(),
	)
	return cmd
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// open reads site.toml and builds the loader and library.
func (a *app) open() error {
	log, err := logger.New(a.logLevel, true)
	if err != nil {
		return err
	}
	a.log = log

	cfg, err := site.LoadConfig(os.DirFS(a.root))
	if err != nil {
		return err
	}
	dir := cfg.StoriesDir
	if a.stories != "" {
		dir = a.stories
	}
	a.loader = story.NewLoader(os.DirFS(filepath.Join(a.root, a.public)), dir, log.Named("loader"))
	a.lib = story.NewLibrary(a.loader, story.WithDescriptions(cfg.Cities))
	return nil
}

func (a *app) listCmd() *cobra.Command {
	var city string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stories in site order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stories := a.lib.AllStories(ctx)
			if city != "" {
				stories = a.lib.StoriesByCity(ctx, city)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tCITY\tTITLE\tIMAGE")
			for _, s := range stories {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Slug, s.City, title(s), s.ImagePath)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "Only list one city, by Chinese name or slug.")
	return cmd
}

func (a *app) citiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List cities and their story counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tNAME\tNAME (EN)\tSTORIES")
			for _, c := range a.lib.AllCities(cmd.Context()) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", c.Slug, c.Name, c.NameEn, c.StoryCount)
			}
			return tw.Flush()
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Print one story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.lib.StoryBySlug(cmd.Context(), args[0])
			if s == nil {
				return fmt.Errorf("story %q not found", args[0])
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n%s · %s\n", title(*s), s.City, s.CityEn)
			if s.Location != "" {
				fmt.Fprintf(w, "Location: %s\n", s.Location)
			}
			fmt.Fprintf(w, "Image: %s\nFolder: %s\n", s.ImagePath, s.FolderPath)
			if s.Content != "" {
				fmt.Fprintf(w, "\n%s\n", s.Content)
			}
			if s.ContentEn != "" {
				fmt.Fprintf(w, "\n%s\n", s.ContentEn)
			}
			return nil
		},
	}
}

func (a *app) latestCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Pick stories the way the home page does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range a.lib.LatestStories(cmd.Context(), n) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Slug, title(s))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 6, "Number of stories.")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report folders the site skips or patches up",
		Long: `Check walks the stories folder and reports missing story files,
invalid stories, stories shown with the placeholder image and cities
without a known slug. It fails on duplicate slugs and unreadable folders.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), cmd)
		},
	}
}

func (a *app) check(ctx context.Context, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	stories, problems := a.loader.Check(ctx)

	failed := 0
	for _, p := range problems {
		switch p.Kind {
		case story.DuplicateSlug, story.UnreadableFolder, story.UnreadableStory:
			failed++
			fmt.Fprintln(w, "ERROR", p)
		default:
			fmt.Fprintln(w, "WARN ", p)
		}
	}

	orphans := map[string]bool{}
	for _, s := range stories {
		if _, ok := story.CityName(story.CitySlug(s.City)); !ok && !orphans[s.City] {
			orphans[s.City] = true
			fmt.Fprintf(w, "WARN  unknown city: %s (slug %q)\n", s.City, story.CitySlug(s.City))
		}
	}

	fmt.Fprintf(w, "%d stories, %d problems\n", len(stories), len(problems)+len(orphans))
	if failed > 0 {
		return fmt.Errorf("%w: %d", errProblems, failed)
	}
	return nil
}

func title(s story.Story) string {
	if s.TitleEn == "" || s.TitleEn == s.Title {
		return s.Title
	}
	return s.Title + " | " + s.TitleEn
}
