package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SegmentIterator iterates over records in a segment file
type SegmentIterator struct {
	file   *os.File
	r      *bufio.Reader
	path   string
	offset int64
	record *Record
	err    error
}

// NewSegmentIterator opens a segment for reading
func NewSegmentIterator(path string) (*SegmentIterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wal: failed to open segment %s: %w", path, err)
	}
	return &SegmentIterator{file: f, r: bufio.NewReader(f), path: path}, nil
}

// Next advances to the next record. It returns false at the end of the
// segment or on error; check Err to tell them apart.
func (it *SegmentIterator) Next() bool {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(it.r, buf); err != nil {
		if err != io.EOF {
			it.err = fmt.Errorf("%w: torn header at offset %d", ErrCorrupt, it.offset)
		}
		return false
	}

	h, err := parseHeader(buf)
	if err != nil {
		it.err = fmt.Errorf("offset %d: %w", it.offset, err)
		return false
	}

	body := make([]byte, int(h.payloadLen)+4)
	if _, err := io.ReadFull(it.r, body); err != nil {
		it.err = fmt.Errorf("%w: torn payload at offset %d", ErrCorrupt, it.offset)
		return false
	}
	payload, err := checkPayload(body)
	if err != nil {
		it.err = fmt.Errorf("offset %d: %w", it.offset, err)
		return false
	}

	it.record = &Record{Type: h.recType, Flags: h.flags, LSN: h.lsn, Payload: payload}
	it.offset += int64(HeaderSize) + int64(len(body))
	return true
}

// Record returns the current record
func (it *SegmentIterator) Record() *Record {
	return it.record
}

// Err returns the error that stopped iteration, if any
func (it *SegmentIterator) Err() error {
	return it.err
}

// Offset returns the byte offset after the last good record
func (it *SegmentIterator) Offset() int64 {
	return it.offset
}

// Close closes the underlying file
func (it *SegmentIterator) Close() error {
	return it.file.Close()
}

// ReadAllRecords reads every record in a segment file
func ReadAllRecords(path string) ([]*Record, error) {
	it, err := NewSegmentIterator(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	var records []*Record
	for it.Next() {
		records = append(records, it.Record())
	}
	return records, it.Err()
}

// ReplayStats summarizes a replay
type ReplayStats struct {
	Segments int
	Records  int
	MaxLSN   uint64

	// TornTail is set when the newest segment ended in a partial or corrupt
	// record. The writer truncates it when it reopens the segment.
	TornTail bool
}

// Replay calls apply for every record in dir, oldest segment first.
// Corruption in the newest segment ends replay quietly; corruption in an
// older segment is an error because records after it would be lost.
func Replay(dir string, apply func(*Record) error) (ReplayStats, error) {
	var stats ReplayStats

	segs, err := ListSegments(dir)
	if err != nil {
		return stats, err
	}

	for i, path := range segs {
		last := i == len(segs)-1

		it, err := NewSegmentIterator(path)
		if err != nil {
			return stats, err
		}
		for it.Next() {
			rec := it.Record()
			if err := apply(rec); err != nil {
				_ = it.Close()
				return stats, fmt.Errorf("wal: apply LSN %d from %s: %w", rec.LSN, filepath.Base(path), err)
			}
			stats.Records++
			if rec.LSN > stats.MaxLSN {
				stats.MaxLSN = rec.LSN
			}
		}
		iterErr := it.Err()
		_ = it.Close()
		stats.Segments++

		if iterErr != nil {
			if last && errors.Is(iterErr, ErrCorrupt) {
				stats.TornTail = true
				break
			}
			return stats, fmt.Errorf("wal: segment %s: %w", filepath.Base(path), iterErr)
		}
	}

	return stats, nil
}
