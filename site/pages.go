package site

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/humblebanana/StoryofUS/story"
	"go.uber.org/zap"
)

// relatedCount and otherCities bound the extra cards on story and city pages.
const (
	relatedCount = 3
	otherCities  = 3
)

// pageInfo has information about the current page.
type pageInfo struct {
	Path        string // path from URL
	Title       string
	TitleEn     string
	Description string
	Image       string
	ImageAlt    string
}

// data is what is passed to page templates.
type data struct {
	Site    *Config
	Page    pageInfo
	Cities  []story.City  // every city, for navigation
	Stories []story.Story // the stories listed on the page
	Story   *story.Story
	City    *story.City
	Related []story.Story
	Others  []story.City
	Cards   []card        // home page shuffle pool
	Content template.HTML // rendered Markdown
}

// card is the client-side form of a story used by the shuffle button.
type card struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	TitleEn   string `json:"titleEn"`
	City      string `json:"city"`
	CityEn    string `json:"cityEn"`
	Excerpt   string `json:"excerpt"`
	ImagePath string `json:"imagePath"`
	ImageAlt  string `json:"imageAlt"`
}

func (s *Site) newData(r *http.Request, title string) data {
	return data{
		Site:   s.cfg,
		Page:   pageInfo{Path: r.URL.Path, Title: title},
		Cities: s.lib.AllCities(r.Context()),
	}
}

func (s *Site) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d := s.newData(r, "")
	d.Page.Description = "在城市里遇见的人，和他们的故事。"
	d.Stories = s.lib.LatestStories(ctx, s.cfg.Latest)
	for _, st := range s.lib.AllStories(ctx) {
		d.Cards = append(d.Cards, card{
			URL:       storyURL(st.Slug),
			Title:     st.Title,
			TitleEn:   st.TitleEn,
			City:      st.City,
			CityEn:    st.CityEn,
			Excerpt:   story.Truncate(st.Excerpt, 60),
			ImagePath: st.ImagePath,
			ImageAlt:  st.ImageAlt,
		})
	}
	s.render(w, r, http.StatusOK, "home", d)
}

func (s *Site) stories(w http.ResponseWriter, r *http.Request) {
	d := s.newData(r, "所有故事")
	d.Page.TitleEn = "All Stories"
	d.Page.Description = "探索我们在旅途中收集的所有温暖故事，每一个故事都承载着独特的人文情怀。"
	d.Stories = s.lib.AllStories(r.Context())
	s.render(w, r, http.StatusOK, "stories", d)
}

func (s *Site) story(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := s.lib.StoryBySlug(ctx, chi.URLParam(r, "slug"))
	if st == nil {
		s.notFound(w, r)
		return
	}
	d := s.newData(r, st.Title)
	d.Page.TitleEn = st.TitleEn
	d.Page.Description = st.Excerpt
	d.Page.Image, d.Page.ImageAlt = st.ImagePath, st.ImageAlt
	d.Story = st
	d.Related = s.lib.RelatedStories(ctx, *st, relatedCount)
	s.render(w, r, http.StatusOK, "story", d)
}

func (s *Site) city(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := s.lib.CityBySlug(ctx, chi.URLParam(r, "citySlug"))
	if c == nil {
		s.notFound(w, r)
		return
	}
	stories := s.lib.StoriesByCity(ctx, c.Name)
	if len(stories) == 0 {
		s.notFound(w, r)
		return
	}
	d := s.newData(r, c.Name+"的故事")
	d.Page.TitleEn = "Stories from " + c.NameEn
	d.Page.Description = fmt.Sprintf("探索我们在%s收集的所有温暖故事，感受这座城市独特的人文魅力。", c.Name)
	d.Page.Image, d.Page.ImageAlt = c.HeroImage, c.Name
	d.City = c
	d.Stories = stories
	for _, o := range d.Cities {
		if len(d.Others) == otherCities {
			break
		}
		if o.Slug != c.Slug {
			d.Others = append(d.Others, o)
		}
	}
	s.render(w, r, http.StatusOK, "city", d)
}

func (s *Site) about(w http.ResponseWriter, r *http.Request) {
	front, content, err := readAbout(s.fsys)
	if err != nil {
		s.log.Error("about: cannot render", zap.Error(err))
		s.serverError(w, r)
		return
	}
	d := s.newData(r, front.Title)
	d.Page.TitleEn = front.TitleEn
	d.Page.Description = front.Description
	d.Page.Image, d.Page.ImageAlt = front.Image, front.ImageAlt
	d.Content = content
	s.render(w, r, http.StatusOK, "about", d)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprint(w, "ok")
}

// render executes the named template into a buffer so a failing template
// becomes a clean 500 page instead of a half-written response.
func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, d data) {
	var out bytes.Buffer
	err := s.tpl.ExecuteTemplate(&out, name, d)
	if err != nil {
		s.log.Error("render: template failed", zap.String("template", name), zap.String("path", r.URL.Path), zap.Error(err))
		s.serverError(w, r)
		return
	}
	writeHTML(w, status, out.Bytes())
}

func writeHTML(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	w.Write(b)
}

// notFound is a handler for rendering our 404 page.
func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	b, ok := s.errorPage(http.StatusNotFound)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusNotFound, b)
}

// serverError is a handler for rendering our error page. The cause is
// logged by the caller and never shown to the client.
func (s *Site) serverError(w http.ResponseWriter, r *http.Request) {
	b, ok := s.errorPage(http.StatusInternalServerError)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusInternalServerError, b)
}

// errorPage renders the page shown for a 404 or 500 status. The pages do
// not depend on the request, so they can replace any response body.
func (s *Site) errorPage(status int) ([]byte, bool) {
	var name, title string
	switch status {
	case http.StatusNotFound:
		name, title = "notfound", "页面未找到"
	case http.StatusInternalServerError:
		name, title = "error", "Server Error"
	default:
		return nil, false
	}
	var out bytes.Buffer
	d := data{Site: s.cfg, Page: pageInfo{Title: title}}
	if err := s.tpl.ExecuteTemplate(&out, name, d); err != nil {
		s.log.Error("errorPage: template failed", zap.String("template", name), zap.Error(err))
		return nil, false
	}
	return out.Bytes(), true
}
