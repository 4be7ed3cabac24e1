package repository

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"gate_control/internal/models"

	"github.com/google/uuid"
)

// EntryFile is the append-only text journal, one entry per line.
type EntryFile struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

func NewEntryFile(path string, loc *time.Location) *EntryFile {
	if loc == nil {
		loc = time.Local
	}
	return &EntryFile{path: path, loc: loc}
}

var _ Journal = (*EntryFile)(nil)

// Path returns the journal location.
func (f *EntryFile) Path() string { return f.path }

// Append writes one line. The file is reopened per write so an operator can
// rotate or remove it while the process runs.
func (f *EntryFile) Append(e models.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log %q: %w", f.path, err)
	}
	if _, err := fh.WriteString(e.Line(f.loc) + "\n"); err != nil {
		_ = fh.Close()
		return fmt.Errorf("write activity log %q: %w", f.path, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close activity log %q: %w", f.path, err)
	}
	return nil
}

// Tail parses the last n lines, oldest first. Lines that do not parse are
// skipped; a missing file is an empty journal. Each entry gets a fresh ID.
func (f *EntryFile) Tail(n int) ([]models.LogEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open activity log %q: %w", f.path, err)
	}
	defer fh.Close()

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read activity log %q: %w", f.path, err)
	}

	out := make([]models.LogEntry, 0, len(ring))
	for _, line := range ring {
		e, err := models.ParseLogLine(line, f.loc)
		if err != nil {
			continue
		}
		e.ID = uuid.NewString()
		out = append(out, e)
	}
	return out, nil
}
