/*
Package site renders the Story of Us pages.

Pages are html/template templates built into the binary. A site may
override any of them by placing *.html files with the same {{define}}
names in a "template" folder of the site root:

	header, footer     page frame
	card, citycard     story and city cards
	pills              city filter row
	home, stories, story, city, about, notfound, error

Templates receive a data value (see data) and may use these helpers:

	paragraphs(string) []string     split a story body on blank lines
	cityurl(string) string          page of a city, by source name
	storyurl(string) string         page of a story, by slug
	excerpt(string, int) string     first n characters plus an ellipsis
	join([]string, string) string   the same as strings.Join
	now() time.Time                 current time
	pills([]story.City, string)     data for the "pills" template

The about page is rendered from about.md in the site root. It is Markdown
with optional TOML front matter delimited by "+++" lines:

	+++
	title = "关于我们"
	titleen = "About Us"
	+++
	我们是……

The sitemap lists every page; sitemap.txt in the site root, if present,
is used as a text/template for it.
*/
package site

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	texttemplate "text/template"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/humblebanana/StoryofUS/public"
	"github.com/humblebanana/StoryofUS/story"
	"github.com/humblebanana/StoryofUS/web"
	"go.uber.org/zap"
)

// Options configures a Site.
type Options struct {
	Config     *Config        // site.toml settings; defaults when nil
	Library    *story.Library // required
	SiteFS     fs.FS          // site root holding template/, about.md and sitemap.txt
	Static     fs.FS          // public assets; nil serves none
	Logger     *zap.Logger
	Middleware []func(http.Handler) http.Handler
}

// Site serves the pages of the story collection.
type Site struct {
	cfg        *Config
	lib        *story.Library
	fsys       fs.FS
	static     fs.FS
	tpl        *template.Template
	sitemapTpl *texttemplate.Template
	log        *zap.Logger
	mw         []func(http.Handler) http.Handler
}

// New loads the templates and returns a Site.
func New(o Options) (*Site, error) {
	if o.Library == nil {
		return nil, errors.New("site: no story library")
	}
	s := &Site{
		cfg:    o.Config,
		lib:    o.Library,
		fsys:   o.SiteFS,
		static: o.Static,
		log:    o.Logger,
		mw:     o.Middleware,
	}
	if s.cfg == nil {
		s.cfg = &Config{}
		s.cfg.setDefaults()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	var (
		custom bool
		err    error
	)
	s.tpl, custom, err = loadTemplates(s.fsys)
	if err != nil {
		return nil, err
	}
	s.log.Info("site: loaded templates", zap.Bool("custom", custom), zap.String("defined", s.tpl.DefinedTemplates()))
	s.sitemapTpl, err = loadSitemapTemplate(s.fsys)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the router for all pages and, when configured, the
// static assets.
func (s *Site) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.mw...)
	r.Use(middleware.GetHead)

	r.Get("/", s.home)
	r.Get("/stories", s.stories)
	r.Get("/stories/{slug}", s.story)
	r.Get("/city/{citySlug}", s.city)
	r.Get("/about", s.about)
	r.Get("/sitemap.txt", s.sitemap)
	r.Get("/healthz", healthz)
	if s.static != nil {
		r.Get("/*", s.staticHandler().ServeHTTP)
	}
	r.NotFound(s.notFound)
	return r
}

// staticHandler serves the public folder. Directory listings are not
// shown, and 404 or 500 answers from the file server get the site's pages.
func (s *Site) staticHandler() http.Handler {
	files := web.ErrorHandler(http.FileServer(http.FS(public.New(s.static))), s.errorPage)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path[len(r.URL.Path)-1] == '/' {
			s.notFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
