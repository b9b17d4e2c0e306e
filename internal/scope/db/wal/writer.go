package wal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxSegmentSize is the default max size before rotation (64MB)
const DefaultMaxSegmentSize = 64 * 1024 * 1024

// ErrClosed is returned by writes after Close
var ErrClosed = errors.New("wal: writer is closed")

// SyncPolicy controls when to fsync writes to disk
type SyncPolicy struct {
	Immediate bool          // Sync after every write
	Interval  time.Duration // Background sync period when not immediate
	BatchSize int           // Sync after this many unsynced records
}

// DefaultSyncPolicy returns a batched policy
func DefaultSyncPolicy() SyncPolicy {
	return SyncPolicy{
		Interval:  100 * time.Millisecond,
		BatchSize: 100,
	}
}

// ImmediateSyncPolicy returns a policy that syncs after every write
func ImmediateSyncPolicy() SyncPolicy {
	return SyncPolicy{Immediate: true}
}

// Writer appends records to the newest segment, rotating by size
type Writer struct {
	mu         sync.Mutex
	dir        string
	file       *os.File
	segmentID  uint64
	lsn        uint64 // next LSN to assign
	offset     int64
	syncPolicy SyncPolicy
	maxSize    int64
	logger     zerolog.Logger

	pending  int
	ticker   *time.Ticker
	stopSync chan struct{}
	wg       sync.WaitGroup

	closed bool
}

// Option configures a Writer
type Option func(*Writer)

// WithSyncPolicy sets the sync policy
func WithSyncPolicy(policy SyncPolicy) Option {
	return func(w *Writer) { w.syncPolicy = policy }
}

// WithMaxSegmentSize sets the size that triggers rotation
func WithMaxSegmentSize(size int64) Option {
	return func(w *Writer) {
		if size > 0 {
			w.maxSize = size
		}
	}
}

// WithInitialLSN continues numbering after a replay
func WithInitialLSN(lsn uint64) Option {
	return func(w *Writer) {
		if lsn > 0 {
			w.lsn = lsn
		}
	}
}

// WithLogger sets the logger used for rotation and repair messages
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Writer) { w.logger = logger }
}

// NewWriter opens the newest segment in dir for appending, creating the
// directory and the first segment when needed
func NewWriter(dir string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("wal: failed to create directory: %w", err)
	}

	w := &Writer{
		dir:        dir,
		segmentID:  1,
		lsn:        1,
		syncPolicy: DefaultSyncPolicy(),
		maxSize:    DefaultMaxSegmentSize,
		logger:     zerolog.Nop(),
		stopSync:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	latest, err := LatestSegment(dir)
	if err != nil {
		return nil, err
	}
	if latest > 0 {
		w.segmentID = latest
	}
	_ = os.Remove(filepath.Join(dir, checkpointTmp))

	if err := w.openSegment(); err != nil {
		return nil, err
	}

	if !w.syncPolicy.Immediate && w.syncPolicy.Interval > 0 {
		w.startBackgroundSync()
	}
	return w, nil
}

func (w *Writer) segmentPath(id uint64) string {
	return filepath.Join(w.dir, SegmentFilename(id))
}

// openSegment opens the current segment for append, cutting off a torn tail
func (w *Writer) openSegment() error {
	path := w.segmentPath(w.segmentID)

	if stat, err := os.Stat(path); err == nil && stat.Size() > 0 {
		valid, err := lastValidOffset(path)
		if err != nil {
			return err
		}
		if valid < stat.Size() {
			w.logger.Warn().
				Str("segment", filepath.Base(path)).
				Int64("size", stat.Size()).
				Int64("valid", valid).
				Msg("truncating torn segment tail")
			if err := os.Truncate(path, valid); err != nil {
				return fmt.Errorf("wal: failed to truncate segment: %w", err)
			}
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("wal: failed to open segment %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("wal: failed to stat segment %s: %w", path, err)
	}

	w.file = f
	w.offset = stat.Size()
	return nil
}

// lastValidOffset returns the offset after the last intact record
func lastValidOffset(path string) (int64, error) {
	it, err := NewSegmentIterator(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = it.Close() }()

	for it.Next() {
	}
	return it.Offset(), nil
}

// Append writes a record and returns its LSN, syncing per the policy
func (w *Writer) Append(recType RecordType, payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendLocked(recType, payload, w.syncPolicy.Immediate)
}

// AppendWithSync writes a record and syncs before returning
func (w *Writer) AppendWithSync(recType RecordType, payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendLocked(recType, payload, true)
}

func (w *Writer) appendLocked(recType RecordType, payload []byte, sync bool) (uint64, error) {
	if w.closed {
		return 0, ErrClosed
	}

	rec, err := NewRecord(recType, w.lsn, payload)
	if err != nil {
		return 0, err
	}
	data := rec.Encode()

	n, err := w.file.Write(data)
	w.offset += int64(n)
	if err != nil {
		return 0, fmt.Errorf("wal: failed to write record: %w", err)
	}
	lsn := w.lsn
	w.lsn++
	w.pending++

	if sync || (w.syncPolicy.BatchSize > 0 && w.pending >= w.syncPolicy.BatchSize) {
		if err := w.syncLocked(); err != nil {
			return 0, fmt.Errorf("wal: failed to sync: %w", err)
		}
	}

	if w.offset >= w.maxSize {
		if err := w.rotateLocked(); err != nil {
			return 0, fmt.Errorf("wal: failed to rotate segment: %w", err)
		}
	}
	return lsn, nil
}

// Sync forces pending writes to disk
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.syncLocked()
}

func (w *Writer) syncLocked() error {
	if w.file == nil || w.pending == 0 {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.pending = 0
	return nil
}

func (w *Writer) rotateLocked() error {
	if err := w.syncLocked(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("wal: failed to close segment: %w", err)
	}

	w.segmentID++
	w.logger.Info().Uint64("segment", w.segmentID).Msg("rotated journal segment")
	return w.openSegment()
}

// CheckpointStats describes a finished checkpoint
type CheckpointStats struct {
	Records   int
	Removed   int
	SegmentID uint64
}

// Checkpoint replaces every existing segment with a single segment holding
// RecordReset followed by the records write emits. The new segment is
// written to a temporary file and renamed into place before older segments
// are removed, so a crash leaves either the old log or the new one. write
// must not call back into the Writer.
func (w *Writer) Checkpoint(write func(emit func(RecordType, []byte) error) error) (CheckpointStats, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var stats CheckpointStats
	if w.closed {
		return stats, ErrClosed
	}
	if err := w.syncLocked(); err != nil {
		return stats, err
	}

	tmpPath := filepath.Join(w.dir, checkpointTmp)
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return stats, fmt.Errorf("wal: failed to create checkpoint: %w", err)
	}
	defer func() { _ = os.Remove(tmpPath) }()

	lsn := w.lsn
	emit := func(recType RecordType, payload []byte) error {
		rec, err := NewRecord(recType, lsn, payload)
		if err != nil {
			return err
		}
		if _, err := tmp.Write(rec.Encode()); err != nil {
			return err
		}
		lsn++
		stats.Records++
		return nil
	}

	err = emit(RecordReset, nil)
	if err == nil {
		err = write(emit)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return CheckpointStats{}, fmt.Errorf("wal: checkpoint failed: %w", err)
	}

	// Seal the current segment and move the checkpoint in after it
	if err := w.file.Close(); err != nil {
		return CheckpointStats{}, fmt.Errorf("wal: failed to close segment: %w", err)
	}
	next := w.segmentID + 1
	if err := os.Rename(tmpPath, w.segmentPath(next)); err != nil {
		// Keep appending to the old segment
		if oerr := w.openSegment(); oerr != nil {
			return CheckpointStats{}, errors.Join(err, oerr)
		}
		return CheckpointStats{}, fmt.Errorf("wal: failed to install checkpoint: %w", err)
	}
	syncDir(w.dir)

	w.segmentID = next
	w.lsn = lsn
	if err := w.openSegment(); err != nil {
		return CheckpointStats{}, err
	}

	removed, err := removeSegmentsBefore(w.dir, next)
	stats.Removed = removed
	stats.SegmentID = next
	if err != nil {
		return stats, err
	}

	w.logger.Info().
		Int("records", stats.Records).
		Int("removed_segments", removed).
		Uint64("segment", next).
		Msg("journal checkpoint written")
	return stats, nil
}

// syncDir makes a rename durable where the platform supports it
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func (w *Writer) startBackgroundSync() {
	w.ticker = time.NewTicker(w.syncPolicy.Interval)
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ticker.C:
				w.mu.Lock()
				if !w.closed {
					if err := w.syncLocked(); err != nil {
						w.logger.Error().Err(err).Msg("background sync failed")
					}
				}
				w.mu.Unlock()
			case <-w.stopSync:
				return
			}
		}
	}()
}

// Close syncs and closes the current segment
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.ticker != nil {
		w.ticker.Stop()
		close(w.stopSync)
	}
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("wal: failed to sync on close: %w", err)
	}
	return w.file.Close()
}

// CurrentLSN returns the next LSN to be assigned
func (w *Writer) CurrentLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lsn
}

// CurrentSegmentID returns the segment being appended to
func (w *Writer) CurrentSegmentID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.segmentID
}

// Dir returns the journal directory
func (w *Writer) Dir() string {
	return w.dir
}
