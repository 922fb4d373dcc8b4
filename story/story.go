/*
Package story loads the travel stories of the site from a folder tree and
answers the queries the pages are built from.

Content Layout

Stories live under a stories directory inside the public asset folder.
Every city has one collection folder, named after the city with the
collection suffix "故事集合" appended. Every story is a folder inside a
collection holding a "story.txt" file and, optionally, one image:

	public/
		StoryofUs/
			成都故事集合/
				001_茶馆/
					story.txt
					photo.jpg
			南京故事集合/
				...

The numeric prefix of a story folder ("001" above) becomes part of the
story slug, "chengdu-001".

Story Files

A story file is UTF-8 text. The first non-blank line is the title, which
may carry an English title after a "|" or "｜" separator. A line starting
with "Location:" names the place of the story. Everything else is the
body: the Chinese text first, then the English translation, which starts
at the first line beginning with a capital Latin letter.

	# 茶馆里的下午 | An Afternoon in the Teahouse
	Location: 人民公园

	老人把茶碗推到我面前。
	The old man pushed the tea bowl towards me.

Queries

Library re-reads the tree on every query unless it is given a caching
Source (see package cache). Lookups that find nothing return nil or an
empty slice; they never fail.
*/
package story

// Story is one bilingual narrative read from a story folder.
type Story struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	TitleEn    string `json:"titleEn"`
	Content    string `json:"content"`
	ContentEn  string `json:"contentEn"`
	City       string `json:"city"`
	CityEn     string `json:"cityEn"`
	ImagePath  string `json:"imagePath"`
	ImageAlt   string `json:"imageAlt"`
	Location   string `json:"location,omitempty"` // empty when the file has no Location line
	Excerpt    string `json:"excerpt"`
	ExcerptEn  string `json:"excerptEn"`
	FolderPath string `json:"-"` // only used for ordering
}

// City is the set of stories sharing a city name.
type City struct {
	Name          string `json:"name"`
	NameEn        string `json:"nameEn"`
	Slug          string `json:"slug"`
	StoryCount    int    `json:"storyCount"`
	HeroImage     string `json:"heroImage"`
	Description   string `json:"description,omitempty"`
	DescriptionEn string `json:"descriptionEn,omitempty"`
}
