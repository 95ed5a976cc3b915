package schedule

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"railwatch.dev/railwatch/downloader"
)

const (
	DefaultStaticTTL     = 24 * time.Hour
	DefaultStaticTimeout = 60 * time.Second
	DefaultStaticMaxSize = 800 << 20 // 800 MB
)

// Tables extracted from a schedule snapshot zip. Anything else in
// the archive is ignored.
var snapshotTables = map[string]bool{
	"stops.txt":          true,
	"stop_times.txt":     true,
	"trips.txt":          true,
	"calendar.txt":       true,
	"calendar_dates.txt": true,
}

// Manager keeps a locally cached schedule snapshot no older than
// StaticTTL, and builds an Index over it on demand.
//
// The snapshot zip is cached through the Downloader. A re-download
// that yields the same bytes reuses the existing extracted snapshot
// and Index; new bytes replace the extracted snapshot wholesale
// before reindexing.
type Manager struct {
	URL       string
	Headers   map[string]string
	Dir       string
	StaticTTL time.Duration
	Timeout   time.Duration
	MaxSize   int

	Downloader downloader.Downloader

	mu    sync.Mutex
	hash  string
	index *Index
}

func NewManager(url, dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	fs, err := downloader.NewFilesystem(filepath.Join(dir, "snapshot-cache.json"))
	if err != nil {
		return nil, fmt.Errorf("creating snapshot cache: %w", err)
	}

	return &Manager{
		URL:        url,
		Dir:        dir,
		StaticTTL:  DefaultStaticTTL,
		Timeout:    DefaultStaticTimeout,
		MaxSize:    DefaultStaticMaxSize,
		Downloader: fs,
	}, nil
}

// Returns an Index over a sufficiently fresh snapshot, fetching and
// extracting a new one first if the cached copy has gone stale. The
// returned Index is immutable and safe to hold for a full monitoring
// cycle.
func (m *Manager) Index(ctx context.Context) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.URL == "" {
		// Local-only mode: Dir holds a pre-extracted snapshot.
		if m.index == nil {
			idx, err := Load(m.Dir)
			if err != nil {
				return nil, fmt.Errorf("loading schedule from %s: %w", m.Dir, err)
			}
			m.index = idx
		}
		return m.index, nil
	}

	body, err := m.Downloader.Get(ctx, m.URL, m.Headers, downloader.GetOptions{
		Cache:    true,
		CacheTTL: m.StaticTTL,
		Timeout:  m.Timeout,
		MaxSize:  m.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading schedule: %w", err)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(body))
	if hash == m.hash && m.index != nil {
		return m.index, nil
	}

	extracted := filepath.Join(m.Dir, "static")
	if err := extractSnapshot(body, extracted); err != nil {
		return nil, fmt.Errorf("extracting snapshot: %w", err)
	}

	idx, err := Load(extracted)
	if err != nil {
		return nil, fmt.Errorf("indexing snapshot: %w", err)
	}

	m.hash = hash
	m.index = idx

	return idx, nil
}

// Unzips the snapshot tables into dir, replacing any previously
// extracted snapshot. The new snapshot is staged to a sibling
// directory first, so a failed extract leaves the old one in place.
func extractSnapshot(body []byte, dir string) error {
	r, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("unzipping: %w", err)
	}

	staging := dir + ".tmp"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("creating staging dir: %w", err)
	}

	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		name := path[len(path)-1]

		if !snapshotTables[name] {
			continue
		}

		if err := extractFile(f, filepath.Join(staging, name)); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing old snapshot: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return err
	}

	return nil
}
