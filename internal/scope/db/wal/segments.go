package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	segmentPrefix = "wal_"
	segmentSuffix = ".seg"

	// checkpointTmp holds a checkpoint until it is renamed into place
	checkpointTmp = "checkpoint.tmp"
)

// SegmentFilename generates a segment filename for a given ID
func SegmentFilename(segmentID uint64) string {
	return fmt.Sprintf("%s%012d%s", segmentPrefix, segmentID, segmentSuffix)
}

// SegmentID extracts the segment ID from a segment filename
func SegmentID(filename string) (uint64, error) {
	base := filepath.Base(filename)
	var id uint64
	n, err := fmt.Sscanf(base, segmentPrefix+"%d"+segmentSuffix, &id)
	if err != nil || n != 1 {
		return 0, fmt.Errorf("wal: invalid segment filename: %s", filename)
	}
	return id, nil
}

// ListSegments returns the segment files in dir sorted by ID. A missing
// directory has no segments.
func ListSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wal: failed to read directory: %w", err)
	}

	type seg struct {
		path string
		id   uint64
	}
	var segs []seg
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentSuffix) {
			continue
		}
		id, err := SegmentID(name)
		if err != nil {
			continue
		}
		segs = append(segs, seg{path: filepath.Join(dir, name), id: id})
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].id < segs[j].id })

	paths := make([]string, len(segs))
	for i, s := range segs {
		paths[i] = s.path
	}
	return paths, nil
}

// LatestSegment returns the highest segment ID in dir, or 0 when empty
func LatestSegment(dir string) (uint64, error) {
	segs, err := ListSegments(dir)
	if err != nil || len(segs) == 0 {
		return 0, err
	}
	return SegmentID(segs[len(segs)-1])
}

// removeSegmentsBefore deletes every segment with an ID below keep
func removeSegmentsBefore(dir string, keep uint64) (int, error) {
	segs, err := ListSegments(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range segs {
		id, err := SegmentID(path)
		if err != nil || id >= keep {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("wal: failed to remove %s: %w", filepath.Base(path), err)
		}
		removed++
	}
	return removed, nil
}
