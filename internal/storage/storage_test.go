package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var capturedAt = time.Date(2024, 3, 5, 14, 7, 9, 123456000, time.Local)

func testBatch() *types.Batch {
	return types.NewBatch(capturedAt, []types.HotItem{
		{Platform: "知乎", Ranking: 1, Title: "Tom & Jerry <live>", URL: "https://www.zhihu.com/question/1", Heat: types.Int64Ptr(12000)},
		{Platform: "微博", Ranking: 1, Title: "无热度, 含逗号", URL: "https://s.weibo.com/weibo?q=a"},
	})
}

func TestFileName(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "tophub_20240305_140709.json"), FileName("out", capturedAt, "json"))
}

func TestJSONStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewJSONStorage(dir, testLogger)

	require.NoError(t, s.Store(context.Background(), testBatch()))

	raw, err := os.ReadFile(FileName(dir, capturedAt, "json"))
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, `"title": "Tom & Jerry <live>"`)
	assert.Contains(t, text, `"platform": "知乎"`)
	assert.Contains(t, text, `"heat": null`)
	assert.True(t, strings.HasPrefix(text, "[\n  {\n    \"platform\""))

	var items []types.HotItem
	require.NoError(t, json.Unmarshal(raw, &items))
	assert.Equal(t, testBatch().Items, items)
}

func TestJSONStorageEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStorage(dir, testLogger)

	require.NoError(t, s.Store(context.Background(), types.NewBatch(capturedAt, nil)))

	raw, err := os.ReadFile(FileName(dir, capturedAt, "json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestCSVStorage(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVStorage(dir, testLogger)

	require.NoError(t, s.Store(context.Background(), testBatch()))

	raw, err := os.ReadFile(FileName(dir, capturedAt, "csv"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "\ufeff"), "missing BOM")

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	stamp := capturedAt.Format(types.TimestampLayout)
	assert.Equal(t, []string{"平台", "排名", "标题", "链接", "热度", "时间戳"}, rows[0])
	assert.Equal(t, []string{"知乎", "1", "Tom & Jerry <live>", "https://www.zhihu.com/question/1", "12000", stamp}, rows[1])
	assert.Equal(t, []string{"微博", "1", "无热度, 含逗号", "https://s.weibo.com/weibo?q=a", "", stamp}, rows[2])
}

type fakeStorage struct {
	name   string
	err    error
	stored int
	closed bool
}

func (f *fakeStorage) Store(_ context.Context, b *types.Batch) error {
	if f.err != nil {
		return f.err
	}
	f.stored += b.Len()
	return nil
}

func (f *fakeStorage) Close() error { f.closed = true; return nil }
func (f *fakeStorage) Name() string { return f.name }

func TestMultiStorageContinuesPastFailure(t *testing.T) {
	broken := &fakeStorage{name: "broken", err: errors.New("disk full")}
	ok := &fakeStorage{name: "ok"}
	m := NewMultiStorage([]Storage{broken, ok}, testLogger)

	err := m.Store(context.Background(), testBatch())
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 2, ok.stored)

	require.NoError(t, m.Close())
	assert.True(t, broken.closed)
	assert.True(t, ok.closed)
}

func TestNewStorage(t *testing.T) {
	cfg := config.DefaultConfig().Storage
	cfg.OutputDir = t.TempDir()

	s, err := NewStorage(&cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "multi", s.Name())

	cfg.Formats = []string{"csv"}
	s, err = NewStorage(&cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "csv", s.Name())

	cfg.Formats = []string{"xml"}
	_, err = NewStorage(&cfg, testLogger)
	assert.ErrorContains(t, err, "unsupported storage type")

	cfg.Formats = nil
	_, err = NewStorage(&cfg, testLogger)
	assert.Error(t, err)
}
