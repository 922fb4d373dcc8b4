package story

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	locationLabel = "Location:"
	excerptLength = 100
	ellipsis      = "…"
)

var (
	errNoTitle = errors.New("story has no title line")

	headingRegexp = regexp.MustCompile(`(?m)^#+\s*`)
	boldRegexp    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRegexp  = regexp.MustCompile(`\*(.*?)\*`)
	codeRegexp    = regexp.MustCompile("`(.*?)`")
)

// Parse reads the text of a story file and fills in the text fields of
// a Story: titles, bodies, excerpts, location and image alt text.
func Parse(b []byte) (Story, error) {
	var s Story
	b = bytes.TrimPrefix(b, []byte("\ufeff"))
	// broken bytes become U+FFFD; the rest of the story is kept
	text := strings.ToValidUTF8(string(b), "\uFFFD")
	lines := strings.Split(text, "\n")

	// the title is the first non-blank line
	t := -1
	for i := range lines {
		if strings.TrimSpace(lines[i]) != "" {
			t = i
			break
		}
	}
	if t < 0 {
		return s, errNoTitle
	}

	s.Title, s.TitleEn = parseTitle(lines[t])
	sec := splitBody(lines[t+1:])
	s.Content, s.ContentEn, s.Location = sec.Source, sec.English, sec.Location
	s.Excerpt = excerpt(s.Content)
	s.ExcerptEn = excerpt(s.ContentEn)
	s.ImageAlt = s.Title
	return s, nil
}

// parseTitle strips a heading marker and splits a bilingual title line.
// The fullwidth separator wins when both forms are present.
func parseTitle(line string) (title, titleEn string) {
	line = headingRegexp.ReplaceAllString(strings.TrimSpace(line), "")
	sep := "｜"
	if !strings.Contains(line, sep) {
		sep = "|"
		if !strings.Contains(line, sep) {
			return line, line
		}
	}
	parts := strings.Split(line, sep)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// sections is a story body split by language.
type sections struct {
	Source   string // Chinese text
	English  string
	Location string
}

// splitBody classifies the body lines and joins each language section
// into paragraphs separated by a blank line.
//
// The English section starts at the first line beginning with an
// uppercase Latin letter, provided some text was already collected.
// Without such a line the whole body is used for both languages.
func splitBody(lines []string) sections {
	var (
		sec      sections
		kept     []string
		boundary = -1
	)
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, locationLabel) {
			sec.Location = strings.TrimSpace(strings.Replace(line, locationLabel, "", 1))
			continue
		}
		if boundary < 0 && len(kept) > 0 && startsWithCapital(line) {
			boundary = len(kept)
		}
		kept = append(kept, cleanMarkdown(line))
	}

	if boundary < 0 {
		sec.Source = strings.TrimSpace(strings.Join(kept, "\n\n"))
		sec.English = sec.Source
		return sec
	}
	sec.Source = strings.TrimSpace(strings.Join(kept[:boundary], "\n\n"))
	sec.English = strings.TrimSpace(strings.Join(kept[boundary:], "\n\n"))
	return sec
}

func startsWithCapital(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// cleanMarkdown removes heading, emphasis and inline code markers.
func cleanMarkdown(s string) string {
	s = headingRegexp.ReplaceAllString(s, "")
	s = boldRegexp.ReplaceAllString(s, "${1}")
	s = italicRegexp.ReplaceAllString(s, "${1}")
	s = codeRegexp.ReplaceAllString(s, "${1}")
	return strings.TrimSpace(s)
}

// excerpt returns the first excerptLength characters of s, with an
// ellipsis when s is longer.
func excerpt(s string) string {
	return Truncate(s, excerptLength)
}

// Truncate returns the first n characters of s followed by an ellipsis
// when s is longer than n. Characters are counted as runes, so a
// multi-byte character is never split.
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + ellipsis
}
