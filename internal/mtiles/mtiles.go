// Package mtiles writes and reads MTiles containers: sqlite files holding
// encoded tiles plus a feature side-index with localized names.
package mtiles

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wegman-software/osm2mtiles-go/internal/proj"
)

// Version is the container format version stored in metadata.
const Version = 3

// commit interval in tiles
const batchSize = 1000

const schemaSQL = `
CREATE TABLE IF NOT EXISTS metadata (name TEXT, value TEXT, UNIQUE(name));
CREATE TABLE IF NOT EXISTS tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB,
	UNIQUE(zoom_level, tile_column, tile_row));
CREATE TABLE IF NOT EXISTS names (ref INTEGER, name TEXT, UNIQUE(ref));
CREATE TABLE IF NOT EXISTS feature_names (id INTEGER, lang INTEGER, name INTEGER, UNIQUE(id, lang));
CREATE TABLE IF NOT EXISTS features (id INTEGER, kind INTEGER, type INTEGER, lat REAL, lon REAL,
	opening_hours TEXT, phone TEXT, wikipedia TEXT, website TEXT, flags INTEGER, enum1 INTEGER, UNIQUE(id));
`

const basemapSQL = `
CREATE TABLE IF NOT EXISTS maps (x INTEGER, y INTEGER, date INTEGER, version INTEGER,
	downloading INTEGER, hillshade_downloading INTEGER, UNIQUE(x, y));
CREATE TABLE IF NOT EXISTS map_features (x INTEGER, y INTEGER, feature INTEGER, UNIQUE(x, y, feature));
`

// Metadata describes a container.
type Metadata struct {
	Name      string
	Type      string // baselayer or overlay
	Format    string
	Timestamp time.Time
	Bounds    *orb.Bound // WGS84, optional
	Basemap   bool       // create the map index tables
}

// Writer is the single writer of a container file. It is not safe for
// concurrent use.
type Writer struct {
	path   string
	db     *sql.DB
	tx     *sql.Tx
	logger *zap.Logger
	langs  []Language

	tileStmt        *sql.Stmt
	featureStmt     *sql.Stmt
	nameStmt        *sql.Stmt
	featureNameStmt *sql.Stmt

	pending int
	tiles   int64
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)
	return db, nil
}

// Create opens or creates the container at path, ensures its schema and
// writes the metadata.
func Create(path string, meta Metadata, langs []Language, logger *zap.Logger) (*Writer, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=OFF",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to exec %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if meta.Basemap {
		if _, err := db.Exec(basemapSQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create basemap schema: %w", err)
		}
	}

	w := &Writer{path: path, db: db, logger: logger, langs: langs}
	if err := w.begin(); err != nil {
		db.Close()
		return nil, err
	}
	if err := w.putMetadata(meta); err != nil {
		w.tx.Rollback()
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) begin() error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmts := []struct {
		dst **sql.Stmt
		sql string
	}{
		{&w.tileStmt, `INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)`},
		{&w.featureStmt, `INSERT OR REPLACE INTO features (id, kind, type, lat, lon, opening_hours, phone, wikipedia, website, flags, enum1)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&w.nameStmt, `INSERT OR IGNORE INTO names (ref, name) VALUES (?, ?)`},
		{&w.featureNameStmt, `INSERT OR REPLACE INTO feature_names (id, lang, name) VALUES (?, ?, ?)`},
	}
	for _, s := range stmts {
		stmt, err := tx.Prepare(s.sql)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		*s.dst = stmt
	}
	w.tx = tx
	return nil
}

func (w *Writer) putMetadata(meta Metadata) error {
	values := [][2]string{
		{"name", meta.Name},
		{"type", meta.Type},
		{"version", strconv.Itoa(Version)},
		{"timestamp", strconv.FormatInt(meta.Timestamp.Unix(), 10)},
		{"format", meta.Format},
	}
	if b := meta.Bounds; b != nil {
		values = append(values, [2]string{"bounds", fmt.Sprintf("%g,%g,%g,%g", b.Min[0], b.Min[1], b.Max[0], b.Max[1])})
	}
	for _, v := range values {
		if _, err := w.tx.Exec(`INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)`, v[0], v[1]); err != nil {
			return fmt.Errorf("failed to write metadata %s: %w", v[0], err)
		}
	}
	return nil
}

// PutTile stores an XYZ tile, replacing any existing one.
func (w *Writer) PutTile(z, x, y int, data []byte) error {
	row := proj.Tile{Z: z, X: x, Y: y}.TMSRow()
	if _, err := w.tileStmt.Exec(z, x, row, data); err != nil {
		return fmt.Errorf("failed to insert tile %d/%d/%d: %w", z, x, y, err)
	}
	w.tiles++
	w.pending++
	if w.pending >= batchSize {
		return w.Commit()
	}
	return nil
}

// Tiles returns the number of tiles written.
func (w *Writer) Tiles() int64 {
	return w.tiles
}

// Commit flushes the current transaction and starts a new one.
func (w *Writer) Commit() error {
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	w.pending = 0
	return w.begin()
}

// Finish commits, compacts and closes the file.
func (w *Writer) Finish() error {
	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("failed to commit: %w", err)
	}
	if _, err := w.db.Exec("VACUUM"); err != nil {
		w.db.Close()
		return fmt.Errorf("failed to vacuum: %w", err)
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}
	w.logger.Debug("Container finished", zap.String("path", w.path), zap.Int64("tiles", w.tiles))
	return nil
}

// Abort discards the current transaction and closes the file.
func (w *Writer) Abort() error {
	_ = w.tx.Rollback()
	return w.db.Close()
}

// PutMap records an area in the basemap index.
func (w *Writer) PutMap(x, y, date, version int) error {
	_, err := w.tx.Exec(`INSERT OR REPLACE INTO maps (x, y, date, version, downloading, hillshade_downloading)
		VALUES (?, ?, ?, ?, 0, 0)`, x, y, date, version)
	if err != nil {
		return fmt.Errorf("failed to insert map %d-%d: %w", x, y, err)
	}
	return nil
}

// PutMapFeature links a feature to the area that contains it.
func (w *Writer) PutMapFeature(x, y int, feature int64) error {
	_, err := w.tx.Exec(`INSERT OR IGNORE INTO map_features (x, y, feature) VALUES (?, ?, ?)`, x, y, feature)
	if err != nil {
		return fmt.Errorf("failed to insert map feature %d: %w", feature, err)
	}
	return nil
}

// IsValid reports whether the container at path has a timestamp and holds
// exactly expected tiles. A missing file is not valid.
func IsValid(path string, expected int) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	r, err := Open(path)
	if err != nil {
		return false, err
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		return false, err
	}
	if meta["timestamp"] == "" {
		return false, nil
	}
	n, err := r.TileCount()
	if err != nil {
		return false, err
	}
	return n == expected, nil
}
