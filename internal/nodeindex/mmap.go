// Package nodeindex stores node coordinates in a memory-mapped sparse file
// so that ways can resolve their node references in O(1).
package nodeindex

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

const (
	// Each node entry: lat (int32) + lon (int32) = 8 bytes
	// Using fixed-point: value * 1e7 to store as int32
	entrySize = 8
	// Maximum node ID we support (16 billion leaves room for planet growth)
	DefaultMaxNodeID = 16_000_000_000

	scale = 1e7
)

// MmapIndex is a memory-mapped node coordinate index.
// Node coordinates are stored at offset = nodeID * 8.
type MmapIndex struct {
	file     *os.File
	data     mmap.MMap
	maxID    int64
	writable bool
}

// NewMmapIndex creates a new index for writing, sized for ids below maxID.
// The file is sparse: only pages holding written nodes use disk space.
func NewMmapIndex(path string, maxID int64) (*MmapIndex, error) {
	if maxID <= 0 {
		maxID = DefaultMaxNodeID
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create node index: %w", err)
	}
	if err := f.Truncate(maxID * entrySize); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size node index: %w", err)
	}
	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap node index: %w", err)
	}
	return &MmapIndex{file: f, data: data, maxID: maxID, writable: true}, nil
}

// OpenMmapIndex opens an existing index read-only.
func OpenMmapIndex(path string) (*MmapIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open node index: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat node index: %w", err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap node index: %w", err)
	}
	return &MmapIndex{file: f, data: data, maxID: info.Size() / entrySize}, nil
}

// Put stores a node's coordinates. Out of range ids are ignored. Concurrent
// calls for distinct ids are safe.
func (m *MmapIndex) Put(nodeID int64, lat, lon float64) {
	if !m.writable || nodeID < 0 || nodeID >= m.maxID {
		return
	}
	offset := nodeID * entrySize
	binary.LittleEndian.PutUint32(m.data[offset:], uint32(int32(lat*scale)))
	binary.LittleEndian.PutUint32(m.data[offset+4:], uint32(int32(lon*scale)))
}

// Get retrieves a node's coordinates.
// (0, 0) marks an unwritten slot, so a node exactly at null island reads as
// missing.
func (m *MmapIndex) Get(nodeID int64) (lat, lon float64, ok bool) {
	if nodeID < 0 || nodeID >= m.maxID {
		return 0, 0, false
	}
	offset := nodeID * entrySize
	latInt := int32(binary.LittleEndian.Uint32(m.data[offset:]))
	lonInt := int32(binary.LittleEndian.Uint32(m.data[offset+4:]))
	if latInt == 0 && lonInt == 0 {
		return 0, 0, false
	}
	return float64(latInt) / scale, float64(lonInt) / scale, true
}

// Sync flushes changes to disk.
func (m *MmapIndex) Sync() error {
	if !m.writable {
		return nil
	}
	return m.data.Flush()
}

// Close unmaps and closes the index.
func (m *MmapIndex) Close() error {
	if err := m.data.Unmap(); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}
