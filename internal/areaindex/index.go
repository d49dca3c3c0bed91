// Package areaindex maintains the binary index of built map areas: one
// 6-byte slot per zoom-7 tile holding the build date and file size.
package areaindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// Side is the number of areas per axis.
	Side = 128

	slotSize = 6
	fileSize = Side * Side * slotSize
)

// Entry describes one built area.
type Entry struct {
	X, Y int
	Days uint16 // days since the Unix epoch
	Size uint32 // bytes
}

// Date returns the build date of the entry.
func (e Entry) Date() time.Time {
	return time.Unix(int64(e.Days)*86400, 0).UTC()
}

// Index is an in-memory copy of the index file.
type Index struct {
	path string
	data []byte
}

// Open loads the index at path, or returns an empty index if it does not
// exist yet.
func Open(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = make([]byte, fileSize)
	case err != nil:
		return nil, fmt.Errorf("failed to read index: %w", err)
	case len(data) != fileSize:
		return nil, fmt.Errorf("index %s has size %d, want %d", path, len(data), fileSize)
	}
	return &Index{path: path, data: data}, nil
}

func offset(x, y int) (int, error) {
	if x < 0 || x >= Side || y < 0 || y >= Side {
		return 0, fmt.Errorf("area %d-%d out of range", x, y)
	}
	return (x*Side + y) * slotSize, nil
}

// Get returns the slot of area (x, y).
func (i *Index) Get(x, y int) (Entry, error) {
	off, err := offset(x, y)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		X:    x,
		Y:    y,
		Days: binary.BigEndian.Uint16(i.data[off:]),
		Size: binary.BigEndian.Uint32(i.data[off+2:]),
	}, nil
}

// Set records a build of area (x, y) on date with the given file size.
func (i *Index) Set(x, y int, date time.Time, size int64) error {
	off, err := offset(x, y)
	if err != nil {
		return err
	}
	days := date.UTC().Unix() / 86400
	binary.BigEndian.PutUint16(i.data[off:], uint16(days))
	binary.BigEndian.PutUint32(i.data[off+2:], uint32(size))
	return nil
}

// Clear resets the slot of area (x, y).
func (i *Index) Clear(x, y int) error {
	return i.Set(x, y, time.Unix(0, 0), 0)
}

// Entries returns every area with a non-zero size, in x, y order.
func (i *Index) Entries() []Entry {
	var out []Entry
	for x := 0; x < Side; x++ {
		for y := 0; y < Side; y++ {
			e, _ := i.Get(x, y)
			if e.Size > 0 {
				out = append(out, e)
			}
		}
	}
	return out
}

// Save writes the index atomically.
func (i *Index) Save() error {
	if err := os.MkdirAll(filepath.Dir(i.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	tmp := i.path + ".tmp"
	if err := os.WriteFile(tmp, i.data, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := os.Rename(tmp, i.path); err != nil {
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}
