package mtiles

import (
	"database/sql"
	"fmt"
)

// Reader gives read access to an existing container.
type Reader struct {
	db *sql.DB
}

// Open opens the container at path.
func Open(path string) (*Reader, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Metadata returns all metadata entries.
func (r *Reader) Metadata() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT name, value FROM metadata`)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta[name] = value
	}
	return meta, rows.Err()
}

// TileCount returns the number of stored tiles.
func (r *Reader) TileCount() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tiles: %w", err)
	}
	return n, nil
}

// Tile returns the data of XYZ tile z/x/y, or nil if it is absent.
func (r *Reader) Tile(z, x, y int) ([]byte, error) {
	row := (1 << z) - 1 - y
	var data []byte
	err := r.db.QueryRow(`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		z, x, row).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tile %d/%d/%d: %w", z, x, y, err)
	}
	return data, nil
}

// EachTile calls fn for every stored tile with XYZ coordinates.
func (r *Reader) EachTile(fn func(z, x, y int, data []byte) error) error {
	rows, err := r.db.Query(`SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles`)
	if err != nil {
		return fmt.Errorf("failed to read tiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var z, x, row int
		var data []byte
		if err := rows.Scan(&z, &x, &row, &data); err != nil {
			return fmt.Errorf("failed to scan tile: %w", err)
		}
		if err := fn(z, x, (1<<z)-1-row, data); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Feature returns a stored feature.
func (r *Reader) Feature(id int64) (*FeatureRow, error) {
	f := &FeatureRow{}
	err := r.db.QueryRow(`SELECT id, kind, type, lat, lon, opening_hours, phone, wikipedia, website, flags, enum1
		FROM features WHERE id = ?`, id).Scan(
		&f.ID, &f.Kind, &f.Type, &f.Lat, &f.Lon, &f.OpeningHours, &f.Phone, &f.Wikipedia, &f.Website, &f.Flags, &f.Enum1)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature %d: %w", id, err)
	}
	return f, nil
}

// FeatureIDs returns the ids of all stored features.
func (r *Reader) FeatureIDs() ([]int64, error) {
	rows, err := r.db.Query(`SELECT id FROM features`)
	if err != nil {
		return nil, fmt.Errorf("failed to read features: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan feature: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Names returns the localized names of a feature by language code.
func (r *Reader) Names(id int64) (map[int]string, error) {
	rows, err := r.db.Query(`SELECT fn.lang, n.name FROM feature_names fn JOIN names n ON n.ref = fn.name
		WHERE fn.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read names: %w", err)
	}
	defer rows.Close()

	names := make(map[int]string)
	for rows.Next() {
		var lang int
		var name string
		if err := rows.Scan(&lang, &name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names[lang] = name
	}
	return names, rows.Err()
}
