package parser

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TopHub/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testOrigin = "https://tophub.today"

const testHTML = `<!DOCTYPE html>
<html>
<head><title>今日热榜</title></head>
<body>
<div class="bc-cc">
  <div class="cc-cd" id="node-6">
    <div class="cc-cd-ih">
      <div class="cc-cd-is">
        <a href="/n/mproPpoq6O"><div class="cc-cd-lb"><img src="/logo.png"><span>知乎</span></div></a>
      </div>
      <div class="cc-cd-sb"><span class="cc-cd-sb-st">热榜</span></div>
    </div>
    <div class="cc-cd-cb nano">
      <div class="cc-cd-cb-l nano-content">
        <a href="https://www.zhihu.com/question/1" target="_blank">
          <div class="cc-cd-cb-ll"><span class="s">1</span><span class="t"> First question </span><span class="heat">1.2万热度</span></div>
        </a>
        <a href="/l?e=skip" target="_blank">
          <div class="cc-cd-cb-ll"><span class="t">   </span></div>
        </a>
        <a href="/l?e=third" target="_blank">
          <div class="cc-cd-cb-ll"><span class="s">3</span><span class="t">Third question</span></div>
        </a>
        <div class="extra">3亿</div>
      </div>
    </div>
  </div>

  <div class="cc-cd" id="node-1">
    <div class="cc-cd-ih"><div class="cc-cd-lb">微博</div></div>
    <div class="cc-cd-cb nano">
      <div class="cc-cd-cb-l nano-content">
        <a href="//s.weibo.com/weibo?q=a">Weibo A</a>
        <a href="https://s.weibo.com/weibo?q=b">Weibo B</a>
        <a><span class="t">No link</span></a>
      </div>
    </div>
  </div>

  <div class="cc-cd" id="node-9">
    <div class="cc-cd-cb">
      <a href="https://example.com/x"><span class="t">Nameless</span><span class="hot-num">500</span></a>
    </div>
  </div>
</div>
</body>
</html>`

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(testOrigin, DefaultSelectors(), testLogger)
	require.NoError(t, err)
	return e
}

// --- Heat Tests ---

func TestParseHeat(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{"1.2万", 12000, true},
		{"3亿", 300000000, true},
		{"500", 500, true},
		{"  85万热度 ", 850000, true},
		{"2.5亿次浏览", 250000000, true},
		{"1.5万亿", 15000, true},
		{"", 0, false},
		{"   ", 0, false},
		{"no digits", 0, false},
		{"热", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseHeat(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// --- Extraction Tests ---

func TestExtractStaticDocument(t *testing.T) {
	doc, err := NewStaticDocumentFromString(testHTML)
	require.NoError(t, err)

	items, err := newTestExtractor(t).Extract(doc)
	require.NoError(t, err)
	require.Len(t, items, 5)

	want := []types.HotItem{
		{Platform: "知乎", Ranking: 1, Title: "First question", URL: "https://www.zhihu.com/question/1", Heat: types.Int64Ptr(12000)},
		{Platform: "知乎", Ranking: 2, Title: "Third question", URL: "https://tophub.today/l?e=third", Heat: types.Int64Ptr(300000000)},
		{Platform: "微博", Ranking: 1, Title: "Weibo A", URL: "https://s.weibo.com/weibo?q=a"},
		{Platform: "微博", Ranking: 2, Title: "Weibo B", URL: "https://s.weibo.com/weibo?q=b"},
		{Platform: types.UnknownPlatform, Ranking: 1, Title: "Nameless", URL: "https://example.com/x", Heat: types.Int64Ptr(500)},
	}
	assert.Equal(t, want, items)
}

func TestExtractRanksAreDense(t *testing.T) {
	doc, err := NewStaticDocumentFromString(testHTML)
	require.NoError(t, err)

	items, err := newTestExtractor(t).Extract(doc)
	require.NoError(t, err)

	next := map[string]int{}
	for _, item := range items {
		next[item.Platform]++
		assert.Equal(t, next[item.Platform], item.Ranking, "platform %s", item.Platform)
		assert.NotEmpty(t, item.Title)
		assert.NotEmpty(t, item.Platform)
	}
}

func TestExtractNoContainers(t *testing.T) {
	doc, err := NewStaticDocumentFromString(`<html><body><div class="cc-cd-cb"><a href="/x">orphan</a></div></body></html>`)
	require.NoError(t, err)

	items, err := newTestExtractor(t).Extract(doc)
	assert.ErrorIs(t, err, types.ErrNoContainers)
	assert.Empty(t, items)
}

func TestExtractEmptyContainer(t *testing.T) {
	doc, err := NewStaticDocumentFromString(`<div class="cc-cd"><div class="cc-cd-lb">空</div></div>`)
	require.NoError(t, err)

	items, err := newTestExtractor(t).Extract(doc)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestExtractSiblingWithoutDigitsIgnored(t *testing.T) {
	html := `<div class="cc-cd"><div class="cc-cd-lb">P</div><div class="cc-cd-cb">
		<a href="/a"><span class="t">A</span></a><span>hot today</span></div></div>`
	doc, err := NewStaticDocumentFromString(html)
	require.NoError(t, err)

	items, err := newTestExtractor(t).Extract(doc)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Heat)
	assert.Equal(t, "https://tophub.today/a", items[0].URL)
}

func TestExtractTitlePrefersTitleSpan(t *testing.T) {
	html := `<div class="cc-cd"><div class="cc-cd-lb">P</div><div class="cc-cd-cb">
		<a href="/a"><div class="cc-cd-cb-ll"><span class="s">1</span><span class="t">Only title</span><span class="e">5万</span></div></a>
		<a href="/b">  Whole text  </a></div></div>`
	doc, err := NewStaticDocumentFromString(html)
	require.NoError(t, err)

	items, err := newTestExtractor(t).Extract(doc)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Only title", items[0].Title)
	assert.Equal(t, "Whole text", items[1].Title)
}

func TestNewExtractorRejectsBadOrigin(t *testing.T) {
	_, err := NewExtractor("not a url", DefaultSelectors(), testLogger)
	assert.ErrorIs(t, err, types.ErrInvalidURL)
}

// --- Static Document Tests ---

func TestStaticNodeNextSibling(t *testing.T) {
	doc, err := NewStaticDocumentFromString(`<div id="p"><a id="first">1</a> text <b id="second">2</b></div>`)
	require.NoError(t, err)

	nodes, err := doc.Find("#first")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	sib, err := nodes[0].NextSibling()
	require.NoError(t, err)
	require.NotNil(t, sib)
	id, ok, err := sib.Attr("id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", id)

	last, err := sib.NextSibling()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func BenchmarkExtract(b *testing.B) {
	e, err := NewExtractor(testOrigin, DefaultSelectors(), testLogger)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		doc, _ := NewStaticDocumentFromString(testHTML)
		_, _ = e.Extract(doc)
	}
}
