// Package wal implements a segmented append-only journal with LSN tracking
// and CRC32 checksums. Payloads are opaque; callers define record types.
package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Record layout (24-byte header, payload, 4-byte payload CRC):
//
//	Magic (4B) | Type (1B) | Flags (1B) | Reserved (2B)
//	LSN (8B)
//	PayloadLen (4B)
//	HeaderCRC (4B) over bytes [0:20]
//	Payload (PayloadLen bytes)
//	PayloadCRC (4B)

const (
	// MagicBytes marks the start of every record ("CSJR")
	MagicBytes uint32 = 0x43534A52

	// HeaderSize is the fixed size of the record header
	HeaderSize = 24

	// MaxPayloadSize limits individual record size (4MB)
	MaxPayloadSize = 4 * 1024 * 1024
)

// RecordType identifies what a record means to the caller
type RecordType uint8

// RecordReset tells replay to discard all state built so far. Checkpoints
// start with it.
const RecordReset RecordType = 0xFF

func (r RecordType) String() string {
	if r == RecordReset {
		return "RESET"
	}
	return fmt.Sprintf("TYPE(%d)", uint8(r))
}

// ErrCorrupt is wrapped by decode errors caused by bad magic, CRC or length
var ErrCorrupt = errors.New("wal: corrupt record")

// Record is one journal entry
type Record struct {
	Type    RecordType
	Flags   uint8
	LSN     uint64
	Payload []byte
}

// NewRecord validates the payload size
func NewRecord(recType RecordType, lsn uint64, payload []byte) (*Record, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("wal: payload too large: %d > %d", len(payload), MaxPayloadSize)
	}
	return &Record{Type: recType, LSN: lsn, Payload: payload}, nil
}

// TotalSize returns the encoded size of the record
func (r *Record) TotalSize() int {
	return HeaderSize + len(r.Payload) + 4
}

func (r *Record) putHeader(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], MagicBytes)
	buf[4] = byte(r.Type)
	buf[5] = r.Flags
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], r.LSN)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(r.Payload)))
	binary.LittleEndian.PutUint32(buf[20:24], crc32.ChecksumIEEE(buf[0:20]))
}

// Encode serializes the record
func (r *Record) Encode() []byte {
	buf := make([]byte, r.TotalSize())
	r.putHeader(buf)
	copy(buf[HeaderSize:], r.Payload)
	binary.LittleEndian.PutUint32(buf[HeaderSize+len(r.Payload):], crc32.ChecksumIEEE(r.Payload))
	return buf
}

// header is the decoded fixed part of a record
type header struct {
	recType    RecordType
	flags      uint8
	lsn        uint64
	payloadLen uint32
}

// parseHeader checks magic, header CRC and the payload bound
func parseHeader(buf []byte) (header, error) {
	if len(buf) < HeaderSize {
		return header{}, fmt.Errorf("%w: short header %d < %d", ErrCorrupt, len(buf), HeaderSize)
	}
	if magic := binary.LittleEndian.Uint32(buf[0:4]); magic != MagicBytes {
		return header{}, fmt.Errorf("%w: bad magic 0x%X", ErrCorrupt, magic)
	}
	want := crc32.ChecksumIEEE(buf[0:20])
	if got := binary.LittleEndian.Uint32(buf[20:24]); got != want {
		return header{}, fmt.Errorf("%w: header CRC 0x%X, want 0x%X", ErrCorrupt, got, want)
	}
	h := header{
		recType:    RecordType(buf[4]),
		flags:      buf[5],
		lsn:        binary.LittleEndian.Uint64(buf[8:16]),
		payloadLen: binary.LittleEndian.Uint32(buf[16:20]),
	}
	if h.payloadLen > MaxPayloadSize {
		return header{}, fmt.Errorf("%w: payload length %d", ErrCorrupt, h.payloadLen)
	}
	return h, nil
}

// checkPayload verifies the trailing CRC of payload+crc bytes
func checkPayload(body []byte) ([]byte, error) {
	n := len(body) - 4
	payload := body[:n]
	want := crc32.ChecksumIEEE(payload)
	if got := binary.LittleEndian.Uint32(body[n:]); got != want {
		return nil, fmt.Errorf("%w: payload CRC 0x%X, want 0x%X", ErrCorrupt, got, want)
	}
	return payload, nil
}

// DecodeRecord deserializes one record from the start of data
func DecodeRecord(data []byte) (*Record, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	end := HeaderSize + int(h.payloadLen) + 4
	if len(data) < end {
		return nil, fmt.Errorf("%w: truncated payload %d < %d", ErrCorrupt, len(data), end)
	}
	payload, err := checkPayload(data[HeaderSize:end])
	if err != nil {
		return nil, err
	}
	return &Record{
		Type:    h.recType,
		Flags:   h.flags,
		LSN:     h.lsn,
		Payload: append([]byte(nil), payload...),
	}, nil
}
