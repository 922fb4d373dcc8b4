package site

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/humblebanana/StoryofUS/story"
)

// TemplateDir is the folder in the site root whose *.html files override
// the built-in page templates.
const TemplateDir = "template"

// SitemapFile is an optional text/template in the site root that replaces
// the built-in sitemap format. It receives the page URLs as []string.
const SitemapFile = "sitemap.txt"

//go:embed templates/*.html templates/sitemap.txt
var defaultTemplates embed.FS

// funcMap holds the helpers available to page templates.
var funcMap = template.FuncMap{
	"paragraphs": paragraphs,
	"cityurl":    cityURL,
	"storyurl":   storyURL,
	"excerpt":    story.Truncate,
	"join":       strings.Join,
	"now":        time.Now,
	"pills":      newPills,
}

// loadTemplates parses the built-in templates and then any custom ones
// from the template folder of fsys, so a site can replace single pages.
// It reports whether custom templates were found.
func loadTemplates(fsys fs.FS) (*template.Template, bool, error) {
	tpl, err := template.New("site").Funcs(funcMap).ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return nil, false, fmt.Errorf("loadTemplates: %w", err)
	}
	if fsys == nil {
		return tpl, false, nil
	}
	fi, err := fs.Stat(fsys, TemplateDir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !fi.IsDir()) {
		return tpl, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("loadTemplates: %w", err)
	}
	matches, err := fs.Glob(fsys, TemplateDir+"/*.html")
	if err != nil {
		return nil, false, fmt.Errorf("loadTemplates: %w", err)
	}
	if len(matches) == 0 {
		return tpl, false, nil
	}
	tpl, err = tpl.ParseFS(fsys, matches...)
	if err != nil {
		return nil, true, fmt.Errorf("loadTemplates: %w", err)
	}
	return tpl, true, nil
}

// loadSitemapTemplate returns the site's sitemap.txt template, or the
// built-in one.
func loadSitemapTemplate(fsys fs.FS) (*texttemplate.Template, error) {
	if fsys != nil {
		b, err := fs.ReadFile(fsys, SitemapFile)
		if err == nil {
			tpl, err := texttemplate.New("sitemap").Parse(string(b))
			if err != nil {
				return nil, fmt.Errorf("loadSitemapTemplate: %w", err)
			}
			return tpl, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loadSitemapTemplate: %w", err)
		}
	}
	tpl, err := texttemplate.New("sitemap").ParseFS(defaultTemplates, "templates/sitemap.txt")
	if err != nil {
		return nil, fmt.Errorf("loadSitemapTemplate: %w", err)
	}
	return tpl.Lookup("sitemap.txt"), nil
}

// paragraphs splits a story body on blank lines.
func paragraphs(s string) []string {
	var r []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			r = append(r, p)
		}
	}
	return r
}

// cityURL returns the page of a city given its source name.
func cityURL(name string) string {
	return "/city/" + story.CitySlug(name)
}

func storyURL(slug string) string {
	return "/stories/" + slug
}

// pills is the data of the city filter row.
type pills struct {
	Cities  []story.City
	Current string // slug of the highlighted city
}

func newPills(cities []story.City, current string) pills {
	return pills{Cities: cities, Current: current}
}
