package site

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"regexp"

	"github.com/pelletier/go-toml/v2"
	"github.com/russross/blackfriday/v2"
)

// AboutFile is the Markdown source of the about page in the site root.
const AboutFile = "about.md"

//go:embed templates/about.md
var defaultAbout []byte

// FrontMatter is the TOML block at the top of about.md, between two
// lines of "+++".
type FrontMatter struct {
	Title       string `toml:"title"`
	TitleEn     string `toml:"titleen"`
	Description string `toml:"description"`
	Image       string `toml:"image"`
	ImageAlt    string `toml:"imagealt"`
}

var frontMatterDelim = regexp.MustCompile(`(?m)^[ \t]*\+\+\+[ \t]*\r?$`)

// splitFrontMatter separates a leading front matter block from the
// Markdown body. Without one, all of b is the body.
func splitFrontMatter(b []byte) (front, body []byte) {
	m := frontMatterDelim.FindAllIndex(b, 2)
	if len(m) < 2 || len(bytes.TrimSpace(b[:m[0][0]])) > 0 {
		return nil, b
	}
	return bytes.TrimSpace(b[m[0][1]:m[1][0]]), bytes.TrimSpace(b[m[1][1]:])
}

// renderMarkdown splits off the TOML front matter of b and renders the
// rest as HTML.
func renderMarkdown(b []byte) (*FrontMatter, template.HTML, error) {
	var front FrontMatter
	fm, r := splitFrontMatter(b)
	if len(fm) > 0 {
		if err := toml.Unmarshal(fm, &front); err != nil {
			return nil, "", fmt.Errorf("renderMarkdown: %w", err)
		}
	}
	md := blackfriday.Run(r, blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.Footnotes))
	return &front, template.HTML(md), nil
}

// readAbout renders about.md from fsys, or the built-in page when the
// site has none.
func readAbout(fsys fs.FS) (*FrontMatter, template.HTML, error) {
	b, err := fs.ReadFile(fsys, AboutFile)
	if errors.Is(err, fs.ErrNotExist) {
		b = defaultAbout
	} else if err != nil {
		return nil, "", fmt.Errorf("readAbout: %w", err)
	}
	return renderMarkdown(b)
}
