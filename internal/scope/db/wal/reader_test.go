package wal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSegmentIterator(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, WithSyncPolicy(ImmediateSyncPolicy()))
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := w.Append(recPut, []byte("test payload")); err != nil {
			t.Fatalf("failed to append record %d: %v", i, err)
		}
	}
	_ = w.Close()

	iter, err := NewSegmentIterator(filepath.Join(dir, SegmentFilename(1)))
	if err != nil {
		t.Fatalf("failed to create iterator: %v", err)
	}
	defer func() { _ = iter.Close() }()

	count := 0
	for iter.Next() {
		if iter.Record().LSN != uint64(count+1) {
			t.Errorf("expected LSN %d, got %d", count+1, iter.Record().LSN)
		}
		count++
	}
	if err := iter.Err(); err != nil {
		t.Errorf("iterator error: %v", err)
	}
	if count != 10 {
		t.Errorf("expected 10 records, got %d", count)
	}
}

func TestReplayEmptyDir(t *testing.T) {
	stats, err := Replay(filepath.Join(t.TempDir(), "missing"), func(*Record) error {
		t.Error("apply should not be called")
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if stats.Records != 0 || stats.Segments != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

func TestReplayRejectsCorruptOlderSegment(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, WithSyncPolicy(ImmediateSyncPolicy()), WithMaxSegmentSize(64))
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := w.Append(recPut, make([]byte, 48)); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	_ = w.Close()

	first := filepath.Join(dir, SegmentFilename(1))
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	data[HeaderSize+1] ^= 0xFF
	if err := os.WriteFile(first, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err = Replay(dir, func(*Record) error { return nil })
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for a damaged older segment, got %v", err)
	}
}

func TestReplayStopsOnApplyError(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, WithSyncPolicy(ImmediateSyncPolicy()))
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	_, _ = w.Append(recPut, []byte("a"))
	_, _ = w.Append(recPut, []byte("b"))
	_ = w.Close()

	boom := errors.New("boom")
	calls := 0
	_, err = Replay(dir, func(*Record) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected apply error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected replay to stop after the first failure, got %d calls", calls)
	}
}

func TestListSegmentsOrdersByID(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []uint64{10, 2, 1} {
		if err := os.WriteFile(filepath.Join(dir, SegmentFilename(id)), nil, 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644)

	segs, err := ListSegments(dir)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	for i, want := range []uint64{1, 2, 10} {
		got, _ := SegmentID(segs[i])
		if got != want {
			t.Errorf("segment %d: expected ID %d, got %d", i, want, got)
		}
	}

	latest, err := LatestSegment(dir)
	if err != nil || latest != 10 {
		t.Errorf("expected latest 10, got %d (%v)", latest, err)
	}
}
