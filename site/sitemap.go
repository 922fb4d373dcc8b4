package site

import (
	"bytes"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// sitemapURLs lists every page of the site, prefixed with the configured
// base URL.
func (s *Site) sitemapURLs(r *http.Request) []string {
	ctx := r.Context()
	base := strings.TrimSuffix(s.cfg.BaseURL, "/")
	paths := []string{"/", "/stories", "/about"}
	for _, c := range s.lib.AllCities(ctx) {
		paths = append(paths, "/city/"+c.Slug)
	}
	seen := make(map[string]bool)
	for _, st := range s.lib.AllStories(ctx) {
		// a duplicate slug only has one page
		if seen[st.Slug] {
			continue
		}
		seen[st.Slug] = true
		paths = append(paths, storyURL(st.Slug))
	}
	for i := range paths {
		paths[i] = base + paths[i]
	}
	return paths
}

// sitemap is an http.HandlerFunc that renders the site map.
func (s *Site) sitemap(w http.ResponseWriter, r *http.Request) {
	var out bytes.Buffer
	err := s.sitemapTpl.Execute(&out, s.sitemapURLs(r))
	if err != nil {
		s.log.Error("sitemap: template failed", zap.Error(err))
		s.serverError(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(out.Bytes())
}
