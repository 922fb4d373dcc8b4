package site

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/humblebanana/StoryofUS/story"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

func publicFS() fstest.MapFS {
	return fstest.MapFS{
		"placeholder-image.svg":                    file("<svg/>"),
		"city_photo/chengdu.jpg":                   file("jpg"),
		"StoryofUs/成都故事集合/001_茶馆/story.txt":       file("茶馆 | The Teahouse\nLocation: 人民公园\n老人把茶碗推到我面前。\n\n他笑了。\nThe old man pushed the bowl to me.\n\nHe smiled."),
		"StoryofUs/成都故事集合/001_茶馆/photo.jpg":       file("teahouse photo"),
		"StoryofUs/成都故事集合/002_熊猫/story.txt":       file("熊猫 | Panda\n熊猫在睡觉。\nThe panda was asleep."),
		"StoryofUs/成都故事集合/003_火锅/story.txt":       file("火锅 | Hotpot\n很辣。\nVery spicy."),
		"StoryofUs/重庆故事集合/001_索道/story.txt":       file("索道 | Cable Car\n过江。\nAcross the river."),
		"StoryofUs/南京故事集合/001_秦淮/story.txt":       file("秦淮 | Qinhuai\n河。\nRiver."),
		"StoryofUs/武汉故事集合/001_热干面/story.txt":      file("热干面 | Hot Dry Noodles\n一碗面。\nA bowl of noodles."),
		"StoryofUs/武汉故事集合/001_热干面/.hidden.jpg":    file("hidden"),
	}
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, siteFS fstest.MapFS) *testServer {
	t.Helper()
	static := publicFS()
	cfg := &Config{
		BaseURL: "https://example.com/",
		Cities: map[string]story.Description{
			"chengdu": {Text: "天府之国成都。", TextEn: "Chengdu, the land of abundance."},
		},
	}
	cfg.setDefaults()
	lib := story.NewLibrary(story.NewLoader(static, cfg.StoriesDir, nil), story.WithDescriptions(cfg.Cities))
	s, err := New(Options{
		Config:  cfg,
		Library: lib,
		SiteFS:  siteFS,
		Static:  static,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testServer{srv}
}

func (ts *testServer) get(t *testing.T, path string) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b), resp.Header
}

func TestHome(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, header := ts.get(t, "/")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "text/html; charset=utf-8", header.Get("Content-Type"))
	require.Contains(t, body, "<title>Story of Us</title>")
	require.Equal(t, 3, strings.Count(body, `<a class="card" href="/stories/`))
	require.Contains(t, body, `id="story-cards"`)
	require.Contains(t, body, `"url":"/stories/wuhan-001"`)
	// city cards
	for _, slug := range []string{"chengdu", "chongqing", "nanjing", "wuhan"} {
		require.Contains(t, body, `href="/city/`+slug+`"`)
	}
}

func TestStoriesPage(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, _ := ts.get(t, "/stories")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "共收录 <strong>6</strong> 个故事，来自 <strong>4</strong> 个城市")
	require.Contains(t, body, "成都 Chengdu (3)")
	for _, title := range []string{"茶馆", "熊猫", "火锅", "索道", "秦淮", "热干面"} {
		require.Contains(t, body, "<h3>"+title+"</h3>")
	}
}

func TestStoryPage(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, _ := ts.get(t, "/stories/chengdu-001")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "<h1>茶馆</h1>")
	require.Contains(t, body, "The Teahouse")
	require.Contains(t, body, "<p>老人把茶碗推到我面前。</p>")
	require.Contains(t, body, "<p>他笑了。</p>")
	require.Contains(t, body, "<p>He smiled.</p>")
	require.Contains(t, body, "人民公园")
	require.Contains(t, body, "更多成都的故事")
	require.Contains(t, body, `href="/stories/chengdu-002"`)
	require.Contains(t, body, `href="/stories/chengdu-003"`)
	require.NotContains(t, body, `<a class="card" href="/stories/chengdu-001"`)
}

func TestStoryPageWithoutRelated(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, _ := ts.get(t, "/stories/wuhan-001")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, story.PlaceholderImage)
	require.NotContains(t, body, "更多武汉的故事")
	require.Contains(t, body, "武汉, China")
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, p := range []string{
		"/stories/nonexistent-999",
		"/city/shanghai",
		"/no/such/page",
		"/StoryofUs/",
		"/StoryofUs/成都故事集合/001_茶馆/story.txt",
		"/StoryofUs/武汉故事集合/001_热干面/.hidden.jpg",
	} {
		status, body, header := ts.get(t, p)
		require.Equal(t, http.StatusNotFound, status, p)
		require.Contains(t, body, "<h1>404</h1>", p)
		require.Equal(t, "text/html; charset=utf-8", header.Get("Content-Type"), p)
	}
}

func TestCityPage(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, _ := ts.get(t, "/city/chengdu")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "<h1>成都</h1>")
	require.Contains(t, body, "天府之国成都。")
	require.Contains(t, body, "Chengdu, the land of abundance.")
	require.Contains(t, body, "3 个故事")
	require.Contains(t, body, `class="pill current" href="/city/chengdu"`)
	require.Contains(t, body, "探索更多城市")
	require.Equal(t, 3, strings.Count(body, `<a class="card" href="/city/`))

	status, body, _ = ts.get(t, "/city/wuhan")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "<h1>武汉</h1>")
	require.NotContains(t, body, "天府之国成都。")
}

func TestAboutDefault(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, _ := ts.get(t, "/about")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "<h1>关于我们</h1>")
	require.Contains(t, body, "About Us")
	require.Contains(t, body, "<em>Countless personal stories")
}

func TestAboutCustom(t *testing.T) {
	ts := newTestServer(t, fstest.MapFS{
		"about.md": file("+++\ntitle = \"我们\"\nimage = \"/us.jpg\"\n+++\n# Hello\n\nWe **travel**."),
	})
	status, body, _ := ts.get(t, "/about")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "<h1>我们</h1>")
	require.Contains(t, body, `src="/us.jpg"`)
	require.Contains(t, body, "<strong>travel</strong>")
}

func TestAboutBadFrontMatter(t *testing.T) {
	ts := newTestServer(t, fstest.MapFS{
		"about.md": file("+++\ntitle = \n+++\ntext"),
	})
	status, body, _ := ts.get(t, "/about")
	require.Equal(t, http.StatusInternalServerError, status)
	require.Contains(t, body, "<h1>500</h1>")
	// parser details stay in the log
	require.NotContains(t, body, "renderMarkdown")
	require.NotContains(t, body, "toml")
	require.NotContains(t, body, "<pre>")
}

func TestCustomTemplates(t *testing.T) {
	ts := newTestServer(t, fstest.MapFS{
		"template/errors.html": file(`{{define "notfound"}}custom missing page{{end}}`),
		"template/about.html":  file(`{{define "about"}}{{index .Stories 5}}{{end}}`),
	})

	status, body, _ := ts.get(t, "/nowhere")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "custom missing page", body)

	// built-in pages that were not overridden still work
	status, _, _ = ts.get(t, "/stories")
	require.Equal(t, http.StatusOK, status)

	// a failing template renders the error page
	status, body, _ = ts.get(t, "/about")
	require.Equal(t, http.StatusInternalServerError, status)
	require.Contains(t, body, "<h1>500</h1>")
	require.NotContains(t, body, "index out of range")
	require.NotContains(t, body, "template:")
}

func TestSitemap(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, header := ts.get(t, "/sitemap.txt")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "text/plain; charset=utf-8", header.Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Equal(t, "https://example.com/", lines[0])
	require.Contains(t, lines, "https://example.com/city/nanjing")
	require.Contains(t, lines, "https://example.com/stories/chengdu-003")
	require.Len(t, lines, 3+4+6)
}

func TestSitemapCustom(t *testing.T) {
	ts := newTestServer(t, fstest.MapFS{
		"sitemap.txt": file(`{{len .}} pages`),
	})
	_, body, _ := ts.get(t, "/sitemap.txt")
	require.Equal(t, "13 pages", body)
}

func TestStaticFiles(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, _ := ts.get(t, "/StoryofUs/成都故事集合/001_茶馆/photo.jpg")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "teahouse photo", body)

	status, body, _ = ts.get(t, "/placeholder-image.svg")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "<svg/>", body)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	status, body, _ := ts.get(t, "/healthz")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body)
}

func TestHead(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Head(ts.URL + "/stories")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewRequiresLibrary(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
