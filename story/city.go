package story

import "strings"

// cityInfo is an entry of the fixed city table.
type cityInfo struct {
	Slug   string
	NameEn string
}

// cities maps the Chinese city name to its slug and English name.
var cities = map[string]cityInfo{
	"成都": {Slug: "chengdu", NameEn: "Chengdu"},
	"重庆": {Slug: "chongqing", NameEn: "Chongqing"},
	"南京": {Slug: "nanjing", NameEn: "Nanjing"},
	"武汉": {Slug: "wuhan", NameEn: "Wuhan"},
}

// HeroImagePrefix is the public folder holding one photo per city.
const HeroImagePrefix = "/city_photo/"

// CitySlug returns the URL slug of a city. Cities missing from the
// table fall back to the lowercased name.
func CitySlug(name string) string {
	if c, ok := cities[name]; ok {
		return c.Slug
	}
	return strings.ToLower(name)
}

// CityNameEn returns the English name of a city, or name itself when
// the city is not in the table.
func CityNameEn(name string) string {
	if c, ok := cities[name]; ok {
		return c.NameEn
	}
	return name
}

// CityName finds the Chinese name for a table slug.
func CityName(slug string) (string, bool) {
	for name, c := range cities {
		if c.Slug == slug {
			return name, true
		}
	}
	return "", false
}

// HeroImage returns the public path of the hero photo for a city slug.
func HeroImage(slug string) string {
	return HeroImagePrefix + slug + ".jpg"
}
