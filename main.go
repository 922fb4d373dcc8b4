/*
Storyofus serves the Story of Us travel-story site.

The site folder (-root) holds site.toml, an optional about.md, an optional
template folder and the public asset folder (-public). Stories live under
the public folder in city collections:

	public/StoryofUs/成都故事集合/001_茶馆/story.txt
	public/StoryofUs/成都故事集合/001_茶馆/photo.jpg

Every flag may also be set through the environment as STORYOFUS_<FLAG>,
for example STORYOFUS_PORT=9000. A .env file in the working directory is
loaded first when present.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/ancientlore/cachefs"
	"github.com/facebookgo/flagenv"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/groupcache"
	"github.com/google/uuid"
	"github.com/humblebanana/StoryofUS/cache"
	"github.com/humblebanana/StoryofUS/logger"
	"github.com/humblebanana/StoryofUS/site"
	"github.com/humblebanana/StoryofUS/story"
	"github.com/humblebanana/StoryofUS/web"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// options are the settings that shape the handler.
type options struct {
	root          string
	public        string
	cacheSize     int64
	cacheDuration time.Duration
	watch         bool
}

func main() {
	// .env values become defaults for flagenv; a missing file is fine
	dotenvErr := godotenv.Load()

	var (
		fPort              = flag.Int("port", 8080, "Port to listen on.")
		fReadTimeout       = flag.Duration("readtimeout", 10*time.Second, "HTTP server read timeout.")
		fReadHeaderTimeout = flag.Duration("readheadertimeout", 5*time.Second, "HTTP server read header timeout.")
		fWriteTimeout      = flag.Duration("writetimeout", 30*time.Second, "HTTP server write timeout.")
		fRoot              = flag.String("root", ".", "Root of web site.")
		fPublic            = flag.String("public", "public", "Public asset folder, relative to the root.")
		fCacheSize         = flag.Int64("cachesize", 32*1024*1024, "Cache size in bytes.")
		fCacheDuration     = flag.Duration("cacheduration", 0, "How long stories and assets stay cached; 0 reads the disk on every request.")
		fWatch             = flag.Bool("watch", true, "Drop cached stories when files change (only with -cacheduration).")
		fLogLevel          = flag.String("loglevel", "info", "Log level: debug, info, warn or error.")
		fLogDev            = flag.Bool("logdev", false, "Human-readable development logging.")
	)
	flag.Parse()
	flagenv.Prefix = "STORYOFUS_"
	flagenv.Parse()

	log, err := logger.New(*fLogLevel, *fLogDev)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()
	if dotenvErr != nil && !errors.Is(dotenvErr, os.ErrNotExist) {
		log.Warn("Cannot load .env", zap.Error(dotenvErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup groupcache with no peers
	groupcache.RegisterPeerPicker(func() groupcache.PeerPicker { return groupcache.NoPeers{} })

	handler, cleanup, err := newHandler(ctx, options{
		root:          *fRoot,
		public:        *fPublic,
		cacheSize:     *fCacheSize,
		cacheDuration: *fCacheDuration,
		watch:         *fWatch,
	}, log)
	if err != nil {
		log.Error("Cannot set up site", zap.Error(err))
		os.Exit(2)
	}
	defer cleanup()

	srv := http.Server{
		Addr:              fmt.Sprintf(":%d", *fPort),
		Handler:           handler,
		ReadTimeout:       *fReadTimeout,
		WriteTimeout:      *fWriteTimeout,
		ReadHeaderTimeout: *fReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	// Shut down gracefully on interrupt or SIGTERM from kubernetes
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server Shutdown", zap.Error(err))
		}
	}()

	log.Info("Listening for requests", zap.String("addr", srv.Addr), zap.String("root", *fRoot))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Error("HTTP server", zap.Error(err))
	} else {
		log.Info("Goodbye.")
	}
}

// newHandler wires the story loader, caches and pages into the site's
// http.Handler. cleanup stops the file watcher, if one was started.
func newHandler(ctx context.Context, o options, log *zap.Logger) (http.Handler, func(), error) {
	cleanup := func() {}

	siteFS := os.DirFS(o.root)
	cfg, err := site.LoadConfig(siteFS)
	if err != nil {
		return nil, cleanup, fmt.Errorf("newHandler: %w", err)
	}
	publicDir := filepath.Join(o.root, o.public)
	publicFS := os.DirFS(publicDir)

	loader := story.NewLoader(publicFS, cfg.StoriesDir, log.Named("loader"))
	store := cache.New(loader, cfg.StoriesDir, cache.Config{
		GroupName:   "stories",
		SizeInBytes: o.cacheSize,
		Duration:    o.cacheDuration,
	}, log.Named("cache"))

	var static fs.FS = publicFS
	if store.Enabled() {
		static = cachefs.New(publicFS, &cachefs.Config{
			GroupName:   "public-" + uuid.NewString(),
			SizeInBytes: o.cacheSize,
			Duration:    o.cacheDuration,
		})
		if o.watch {
			w, err := cache.NewWatcher(filepath.Join(publicDir, filepath.FromSlash(loader.Dir())), store, cache.DefaultDebounce, log.Named("watch"))
			if err != nil {
				return nil, cleanup, fmt.Errorf("newHandler: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				// the folder may appear later; pages still work without the watcher
				log.Warn("Cannot watch stories", zap.Error(err))
				w.Stop()
			} else {
				cleanup = w.Stop
			}
		}
	}

	s, err := site.New(site.Options{
		Config:  cfg,
		Library: story.NewLibrary(store, story.WithDescriptions(cfg.Cities)),
		SiteFS:  siteFS,
		Static:  static,
		Logger:  log.Named("site"),
		Middleware: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			web.AccessLog(log.Named("access")),
			middleware.Recoverer,
		},
	})
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("newHandler: %w", err)
	}

	handler := web.HeaderHandler(
		web.ExpiresHandler(
			gziphandler.GzipHandler(s.Handler()),
			time.Duration(cfg.Expires),
			time.Duration(cfg.StaticExpires),
		),
		cfg.Headers)
	return handler, cleanup, nil
}
