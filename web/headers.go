package web

import (
	"net/http"
	"path"
	"strconv"
	"time"
)

// HeaderHandler sets fixed response headers, such as the [headers] table of
// site.toml. An empty value removes the header instead.
func HeaderHandler(h http.Handler, headers map[string]string) http.Handler {
	if len(headers) == 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		for k, v := range headers {
			if v == "" {
				hdr.Del(k)
				continue
			}
			hdr.Set(k, v)
		}
		h.ServeHTTP(w, r)
	})
}

// ExpiresHandler lets browsers cache responses. Pages get the pages
// duration and everything else, like story photos, gets assets. A
// duration of zero or less leaves the response alone.
func ExpiresHandler(h http.Handler, pages, assets time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := assets
		if isPage(r.URL.Path) {
			d = pages
		}
		if d > 0 {
			hdr := w.Header()
			hdr.Set("Expires", time.Now().Add(d).UTC().Format(http.TimeFormat))
			hdr.Set("Cache-Control", "public, max-age="+strconv.FormatInt(int64(d/time.Second), 10))
		}
		h.ServeHTTP(w, r)
	})
}

// isPage reports whether p is rendered by the site rather than read from
// the public folder: paths without an extension, and the sitemap.
func isPage(p string) bool {
	return path.Ext(p) == "" || p == "/sitemap.txt"
}
