package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/IshaanNene/TopHub/internal/types"
)

// FilePrefix starts every output file name.
const FilePrefix = "tophub"

// utf8BOM lets spreadsheet tools detect the CSV encoding.
const utf8BOM = "\ufeff"

// csvHeader is the localized header row of the CSV export.
var csvHeader = []string{"平台", "排名", "标题", "链接", "热度", "时间戳"}

// FileName returns the output path for a batch captured at t.
func FileName(dir string, t time.Time, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", FilePrefix, t.Format("20060102_150405"), ext))
}

// createFile makes sure dir exists and creates the batch file.
func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

// --- JSON Storage ---

// JSONStorage writes each batch as a JSON array into its own file.
type JSONStorage struct {
	dir    string
	logger *slog.Logger
}

// NewJSONStorage creates a new JSON file storage rooted at dir.
func NewJSONStorage(dir string, logger *slog.Logger) *JSONStorage {
	return &JSONStorage{
		dir:    dir,
		logger: logger.With("component", "json_storage"),
	}
}

func (s *JSONStorage) Name() string { return "json" }

func (s *JSONStorage) Store(_ context.Context, batch *types.Batch) error {
	path := FileName(s.dir, batch.CapturedAt, "json")
	if err := writeJSON(path, batch.Items); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.logger.Info("JSON written", "path", path, "items", batch.Len())
	return nil
}

func (s *JSONStorage) Close() error { return nil }

func writeJSON(path string, items []types.HotItem) error {
	if items == nil {
		items = []types.HotItem{}
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush JSON: %w", err)
	}
	return f.Close()
}

// --- CSV Storage ---

// CSVStorage writes each batch as a BOM-prefixed CSV file.
type CSVStorage struct {
	dir    string
	logger *slog.Logger
}

// NewCSVStorage creates a new CSV file storage rooted at dir.
func NewCSVStorage(dir string, logger *slog.Logger) *CSVStorage {
	return &CSVStorage{
		dir:    dir,
		logger: logger.With("component", "csv_storage"),
	}
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(_ context.Context, batch *types.Batch) error {
	path := FileName(s.dir, batch.CapturedAt, "csv")
	if err := writeCSV(path, batch.Items); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.logger.Info("CSV written", "path", path, "items", batch.Len())
	return nil
}

func (s *CSVStorage) Close() error { return nil }

func writeCSV(path string, items []types.HotItem) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, item := range items {
		row := []string{
			item.Platform,
			strconv.Itoa(item.Ranking),
			item.Title,
			item.URL,
			item.HeatString(),
			item.Timestamp,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return f.Close()
}

// NewFileStorage creates the appropriate file-based storage by type.
func NewFileStorage(storageType, outputDir string, logger *slog.Logger) (Storage, error) {
	switch storageType {
	case "json":
		return NewJSONStorage(outputDir, logger), nil
	case "csv":
		return NewCSVStorage(outputDir, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
