package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingJSONLJournal writes one JSON entry per line and rotates the file
// by size and age.
type RotatingJSONLJournal struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	path   string
}

// NewRotatingJSONLJournal creates the journal. Sizes are in megabytes and
// ages in days.
func NewRotatingJSONLJournal(path string, maxSizeMB, maxBackups, maxAgeDays int) (*RotatingJSONLJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return &RotatingJSONLJournal{writer: lj, path: path}, nil
}

// Append writes e and rotates the file when it grows past the limit.
func (j *RotatingJSONLJournal) Append(_ context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return json.NewEncoder(j.writer).Encode(e)
}

// Query scans the active file and its rotated backups. Entries are returned
// in time order.
func (j *RotatingJSONLJournal) Query(_ context.Context, q Query) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	files, err := filepath.Glob(j.path + "*")
	if err != nil {
		return nil, err
	}
	// lumberjack names backups <name>-<timestamp><ext> next to the file.
	ext := filepath.Ext(j.path)
	backups, err := filepath.Glob(j.path[:len(j.path)-len(ext)] + "-*" + ext)
	if err != nil {
		return nil, err
	}
	var out []Entry
	seen := map[string]bool{}
	for _, f := range append(files, backups...) {
		if seen[f] {
			continue
		}
		seen[f] = true
		entries, err := readEntries(f, q)
		if err != nil {
			continue
		}
		out = append(out, entries...)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Time.Before(out[b].Time) })
	return out, nil
}

func readEntries(path string, q Query) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var out []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if q.match(e) {
			out = append(out, e)
		}
	}
	return out, scanner.Err()
}

// Close closes the underlying writer.
func (j *RotatingJSONLJournal) Close() error {
	return j.writer.Close()
}
