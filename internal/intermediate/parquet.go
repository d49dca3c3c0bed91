// Package intermediate dumps the filtered element set of an area to Parquet
// for offline inspection.
package intermediate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/wegman-software/osm2mtiles-go/internal/element"
)

const defaultBatchSize = 10000

var recordSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Uint64, Nullable: false},
	{Name: "tags", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "geom_wkb", Type: arrow.BinaryTypes.Binary, Nullable: false},
	{Name: "zoom_min", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
}, nil)

// Writer writes elements to a Parquet file in batches.
type Writer struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	builder   *array.RecordBuilder
	batchSize int
	count     int
	total     int64
}

// NewWriter creates a zstd compressed Parquet file at path.
func NewWriter(path string, batchSize int) (*Writer, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
	)
	writer, err := pqarrow.NewFileWriter(recordSchema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	return &Writer{
		file:      f,
		writer:    writer,
		builder:   array.NewRecordBuilder(memory.DefaultAllocator, recordSchema),
		batchSize: batchSize,
	}, nil
}

// Write appends one element.
func (w *Writer) Write(e *element.Element) error {
	geom, err := wkb.Marshal(e.Geom)
	if err != nil {
		return fmt.Errorf("failed to encode geometry of %d: %w", e.ID, err)
	}
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags of %d: %w", e.ID, err)
	}
	zoomMin := 0
	if e.Mapping != nil {
		zoomMin = e.Mapping.ZoomMin
	}

	w.builder.Field(0).(*array.Uint64Builder).Append(e.ID)
	w.builder.Field(1).(*array.StringBuilder).Append(string(tags))
	w.builder.Field(2).(*array.BinaryBuilder).Append(geom)
	w.builder.Field(3).(*array.Int32Builder).Append(int32(zoomMin))

	w.count++
	w.total++
	if w.count >= w.batchSize {
		return w.flush()
	}
	return nil
}

// Count returns the number of elements written.
func (w *Writer) Count() int64 {
	return w.total
}

func (w *Writer) flush() error {
	if w.count == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	err := w.writer.Write(rec)
	w.count = 0
	return err
}

// Close flushes pending rows and closes the file.
func (w *Writer) Close() error {
	defer w.builder.Release()
	if err := w.flush(); err != nil {
		w.writer.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// WriteFile dumps elements to path.
func WriteFile(path string, elements []*element.Element) error {
	w, err := NewWriter(path, defaultBatchSize)
	if err != nil {
		return err
	}
	for _, e := range elements {
		if err := w.Write(e); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// Record is one row read back from a dump.
type Record struct {
	ID      uint64
	Tags    map[string]string
	WKB     []byte
	ZoomMin int
}

// ReadFile loads every row of the dump at path.
func ReadFile(path string) ([]Record, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	table, err := fr.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	defer table.Release()

	tr := array.NewTableReader(table, defaultBatchSize)
	defer tr.Release()

	var out []Record
	for tr.Next() {
		rec := tr.Record()
		ids := rec.Column(0).(*array.Uint64)
		tags := rec.Column(1).(*array.String)
		geoms := rec.Column(2).(*array.Binary)
		zooms := rec.Column(3).(*array.Int32)
		for i := 0; i < int(rec.NumRows()); i++ {
			r := Record{
				ID:      ids.Value(i),
				WKB:     append([]byte(nil), geoms.Value(i)...),
				ZoomMin: int(zooms.Value(i)),
			}
			if err := json.Unmarshal([]byte(tags.Value(i)), &r.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode tags of %d: %w", r.ID, err)
			}
			out = append(out, r)
		}
	}
	return out, nil
}
