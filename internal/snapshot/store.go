package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
	"github.com/quantfoundry/universe-data/internal/version"
)

const (
	dataPrefix = "universe_state_"
	dataSuffix = ".parquet"
	metaPrefix = "metadata_"
	metaSuffix = ".json"
)

// Store persists snapshots under a single directory.
//
// Saved snapshots are immutable: the store hands out shared references from
// its cache, and callers must not modify records after Save or Load.
type Store struct {
	dir    string
	cache  *cache
	logger *slog.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
// cacheCapacity bounds the in-process cache; values below 1 fall back to
// DefaultCacheCapacity.
func New(dir string, cacheCapacity int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{
		dir:    dir,
		cache:  newCache(cacheCapacity),
		logger: logger,
	}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// SaveOption customizes the metadata written alongside a snapshot.
type SaveOption func(*model.SnapshotMetadata)

// WithProvenance stamps the universe type and data source tags into the
// snapshot's metadata sidecar.
func WithProvenance(universeType string, dataSources ...string) SaveOption {
	return func(m *model.SnapshotMetadata) {
		m.UniverseType = universeType
		m.DataSources = dataSources
	}
}

// Save persists the snapshot as a parquet file plus its metadata sidecar
// and returns the data file path. Validation happens before any I/O: an
// empty snapshot or a malformed timestamp is a ValidationError and leaves
// the directory untouched. A failure mid-write removes whatever was
// partially created, so the data/metadata pair is all-or-nothing.
//
// Saving a timestamp that already exists overwrites it; re-running a build
// for the same date is idempotent.
func (s *Store) Save(snap *model.Snapshot, opts ...SaveOption) (string, error) {
	if snap == nil || len(snap.Records) == 0 {
		return "", errs.Validationf("snapshot is empty")
	}
	if !model.ValidTimestamp(snap.Timestamp) {
		return "", errs.Validationf("malformed snapshot timestamp %q (want YYYYMMDD_HHMMSS)", snap.Timestamp)
	}

	rows, narrowable := toRows(snap.Records)

	checksum, size, err := s.writeData(snap.Timestamp, rows, narrowable)
	if err != nil {
		return "", err
	}
	dataPath := s.dataPath(snap.Timestamp)

	meta := model.SnapshotMetadata{
		Timestamp:     snap.Timestamp,
		RecordCount:   len(snap.Records),
		FileSizeBytes: size,
		Checksum:      checksum,
		CreatedAt:     time.Now().UTC(),
		Columns:       model.RecordColumns,
		Version:       version.Version,
	}
	for _, opt := range opts {
		opt(&meta)
	}

	if err := s.writeMetadata(&meta); err != nil {
		// Keep the pair invariant: no data file without its sidecar.
		os.Remove(dataPath)
		return "", err
	}

	s.cache.put(snap.Timestamp, snap)

	s.logger.Info("snapshot saved",
		"timestamp", snap.Timestamp,
		"records", len(snap.Records),
		"bytes", size,
		"narrowed", narrowable,
	)
	return dataPath, nil
}

// writeData writes the parquet file through a temp file in the same
// directory and renames it into place, returning the content checksum and
// byte size. Any failure removes the temp file.
func (s *Store) writeData(ts string, rows []row, narrowable bool) (checksum string, size int64, err error) {
	tmp, err := os.CreateTemp(s.dir, dataPrefix+"*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("create temp data file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(tmp, h)

	if narrowable {
		narrow := make([]narrowRow, len(rows))
		for i, r := range rows {
			narrow[i] = toNarrow(r)
		}
		err = parquet.Write(w, narrow)
	} else {
		err = parquet.Write(w, rows)
	}
	if err != nil {
		return "", 0, fmt.Errorf("write parquet: %w", err)
	}

	info, err := tmp.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat temp data file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close temp data file: %w", err)
	}
	if err = os.Rename(tmpPath, s.dataPath(ts)); err != nil {
		return "", 0, fmt.Errorf("rename data file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), info.Size(), nil
}

// writeMetadata writes the sidecar through a temp file and renames it into
// place.
func (s *Store) writeMetadata(meta *model.SnapshotMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, metaPrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp metadata file: %w", err)
	}
	if err := os.Rename(tmpPath, s.metaPath(meta.Timestamp)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename metadata file: %w", err)
	}
	return nil
}

// LoadOption customizes a Load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	timestamp string
	columns   []string
	filter    func(*model.UniverseRecord) bool
	noCache   bool
}

// At selects an explicit timestamp instead of the latest snapshot.
func At(timestamp string) LoadOption {
	return func(o *loadOptions) { o.timestamp = timestamp }
}

// WithColumns projects the result onto the named columns only.
func WithColumns(columns ...string) LoadOption {
	return func(o *loadOptions) { o.columns = columns }
}

// WithFilter keeps only records matching the predicate.
func WithFilter(pred func(*model.UniverseRecord) bool) LoadOption {
	return func(o *loadOptions) { o.filter = pred }
}

// WithoutCache bypasses the in-process cache for this load: the snapshot is
// read from disk and the cache is left untouched.
func WithoutCache() LoadOption {
	return func(o *loadOptions) { o.noCache = true }
}

// Load returns a snapshot. Without At, the latest persisted snapshot is
// loaded: the lexicographically greatest valid timestamp with a complete
// data/metadata pair. Missing snapshots are NotFoundErrors; a snapshot whose
// content no longer matches its recorded checksum is an IntegrityError.
func (s *Store) Load(opts ...LoadOption) (*model.Snapshot, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	for _, c := range o.columns {
		if !model.KnownColumn(c) {
			return nil, errs.Validationf("unknown snapshot column %q", c)
		}
	}

	ts := o.timestamp
	if ts == "" {
		latest, err := s.Latest()
		if err != nil {
			return nil, err
		}
		ts = latest
	}

	var snap *model.Snapshot
	if !o.noCache {
		if cached, ok := s.cache.get(ts); ok {
			snap = cached
		}
	}
	if snap == nil {
		loaded, err := s.read(ts)
		if err != nil {
			return nil, err
		}
		snap = loaded
		if !o.noCache {
			s.cache.put(ts, snap)
		}
	}

	if o.columns != nil {
		projected, err := snap.Project(o.columns)
		if err != nil {
			return nil, errs.Validationf("%v", err)
		}
		snap = projected
	}
	if o.filter != nil {
		filtered := &model.Snapshot{Timestamp: snap.Timestamp}
		for i := range snap.Records {
			if o.filter(&snap.Records[i]) {
				filtered.Records = append(filtered.Records, snap.Records[i])
			}
		}
		snap = filtered
	}
	return snap, nil
}

// read loads one snapshot from disk, verifying its checksum against the
// sidecar.
func (s *Store) read(ts string) (*model.Snapshot, error) {
	data, err := os.ReadFile(s.dataPath(ts))
	if os.IsNotExist(err) {
		return nil, errs.NotFound("snapshot", ts)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	meta, err := s.Metadata(ts)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != meta.Checksum {
		return nil, errs.Integrityf("snapshot %s checksum mismatch: file %s, metadata %s", ts, got, meta.Checksum)
	}

	rows, err := parquet.Read[row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", ts, err)
	}
	return toRecords(rows, ts)
}

// Metadata returns the sidecar for a timestamp.
func (s *Store) Metadata(ts string) (*model.SnapshotMetadata, error) {
	data, err := os.ReadFile(s.metaPath(ts))
	if os.IsNotExist(err) {
		return nil, errs.NotFound("snapshot metadata", ts)
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}

	var meta model.SnapshotMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", ts, err)
	}
	return &meta, nil
}

// List returns persisted snapshot timestamps in descending order. Only
// complete pairs with well-formed timestamps count. A limit of 0 or less
// returns all.
func (s *Store) List(limit int) ([]string, error) {
	timestamps, err := s.listPairs()
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(timestamps)))
	if limit > 0 && len(timestamps) > limit {
		timestamps = timestamps[:limit]
	}
	return timestamps, nil
}

// Latest returns the greatest persisted timestamp, or a NotFoundError when
// the store is empty.
func (s *Store) Latest() (string, error) {
	timestamps, err := s.List(1)
	if err != nil {
		return "", err
	}
	if len(timestamps) == 0 {
		return "", errs.NotFound("snapshot", "")
	}
	return timestamps[0], nil
}

// Cleanup removes snapshots older than keepDays and returns how many were
// removed. Data files, metadata sidecars, and cache entries go together;
// orphaned files from interrupted saves are swept as well.
func (s *Store) Cleanup(keepDays int) (int, error) {
	if keepDays < 0 {
		return 0, errs.Validationf("keep_days must be >= 0, got %d", keepDays)
	}
	cutoff := model.FormatTimestamp(time.Now().UTC().AddDate(0, 0, -keepDays))

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read snapshot dir: %w", err)
	}

	cutoffTime := time.Now().UTC().AddDate(0, 0, -keepDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		// Temp files survive only a hard crash mid-save; sweep stale ones.
		if strings.HasSuffix(name, ".tmp") {
			info, err := entry.Info()
			if err == nil && info.ModTime().Before(cutoffTime) {
				os.Remove(filepath.Join(s.dir, name))
			}
			continue
		}

		ts, isData, ok := timestampFromName(name)
		if !ok || ts >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		s.cache.remove(ts)
		if isData {
			removed++
		}
	}

	// Cache entries can outlive their files; sweep those past the cutoff too.
	for _, ts := range s.cache.timestamps() {
		if ts < cutoff {
			s.cache.remove(ts)
		}
	}

	s.logger.Info("snapshot cleanup complete",
		"keep_days", keepDays,
		"cutoff", cutoff,
		"removed", removed,
	)
	return removed, nil
}

// listPairs returns the timestamps that have both a data file and a
// metadata sidecar.
func (s *Store) listPairs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	data := make(map[string]bool)
	meta := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, isData, ok := timestampFromName(entry.Name())
		if !ok {
			continue
		}
		if isData {
			data[ts] = true
		} else {
			meta[ts] = true
		}
	}

	var out []string
	for ts := range data {
		if meta[ts] {
			out = append(out, ts)
		}
	}
	return out, nil
}

// timestampFromName extracts the timestamp from a snapshot file name.
// isData distinguishes data files from metadata sidecars.
func timestampFromName(name string) (ts string, isData, ok bool) {
	switch {
	case strings.HasPrefix(name, dataPrefix) && strings.HasSuffix(name, dataSuffix):
		ts = strings.TrimSuffix(strings.TrimPrefix(name, dataPrefix), dataSuffix)
		isData = true
	case strings.HasPrefix(name, metaPrefix) && strings.HasSuffix(name, metaSuffix):
		ts = strings.TrimSuffix(strings.TrimPrefix(name, metaPrefix), metaSuffix)
	default:
		return "", false, false
	}
	if !model.ValidTimestamp(ts) {
		return "", false, false
	}
	return ts, isData, true
}

func (s *Store) dataPath(ts string) string {
	return filepath.Join(s.dir, dataPrefix+ts+dataSuffix)
}

func (s *Store) metaPath(ts string) string {
	return filepath.Join(s.dir, metaPrefix+ts+metaSuffix)
}
