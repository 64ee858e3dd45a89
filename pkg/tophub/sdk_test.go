package tophub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<div class="cc-cd"><div class="cc-cd-lb">V2EX</div><div class="cc-cd-cb">
<a href="/t/1"><span class="t">Go 1.24 released</span><span class="heat">3.4万</span></a>
</div></div>
</body></html>`

func TestClientScrapeAndSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	dir := t.TempDir()
	client, err := New(
		WithTargetURL(srv.URL),
		WithDelayRange(0, 0),
		WithMaxRetries(1),
		WithOutput(dir, "json"),
	)
	require.NoError(t, err)

	items, err := client.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "V2EX", items[0].Platform)
	assert.Equal(t, "https://tophub.today/t/1", items[0].URL)
	require.NotNil(t, items[0].Heat)
	assert.Equal(t, int64(34000), *items[0].Heat)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	require.NoError(t, client.Save(context.Background(), at, items))
	_, err = os.Stat(filepath.Join(dir, "tophub_20240102_030405.json"))
	assert.NoError(t, err)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := New(WithMode("ftp"))
	assert.ErrorContains(t, err, "scraper.mode")
}

func TestParseHeat(t *testing.T) {
	v, ok := ParseHeat("1.2万")
	assert.True(t, ok)
	assert.Equal(t, int64(12000), v)
}
