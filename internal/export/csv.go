package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteCSV writes header and rows of t to w.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return cw.Error()
}

// CSVDirSink writes one file per owner per day into Dir.
type CSVDirSink struct {
	Dir string
	Now func() time.Time
}

func (s CSVDirSink) Name() string { return "csv" }

// Write replaces <Dir>/<owner>/budget-tracker-YYYY-MM-DD.csv atomically.
func (s CSVDirSink) Write(ctx context.Context, owner string, t Table) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	name, err := ownerDir(owner)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.Dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, Filename(now(), "csv"))
	if err := atomicWriteCSV(path, t.Records()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.InfoContext(ctx, "Exported transactions to CSV", "owner", owner, "path", path, "rows", len(t.Rows))
	return nil
}

// ownerDir maps an owner id to a single path element. Escaping is injective,
// so distinct owners never share a directory, and "." or ".." cannot leave Dir.
func ownerDir(owner string) (string, error) {
	if owner == "" {
		return "", errors.New("export: empty owner")
	}
	name := url.PathEscape(owner)
	if strings.Trim(name, ".") == "" {
		name = strings.ReplaceAll(name, ".", "%2E")
	}
	return name, nil
}

func atomicWriteCSV(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-*.csv")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
