// Package auxquery loads pre-processed layers (boundaries, routes, contours,
// water, land) from PostGIS and feeds them to the element filter.
package auxquery

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/element"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
)

// Spatial reference ids understood by Run.
const (
	SRID4326 = 4326
	SRID3857 = 3857
)

// Querier runs a query. pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Connect opens a connection pool for dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return pool, nil
}

// Row is one query result. The first two columns of every query are the
// feature id and its WKB geometry; the rest are exposed by name.
type Row struct {
	ID   int64
	Geom orb.Geometry
	Cols map[string]any
}

// Text returns column name as text, or "" when it is NULL.
func (r Row) Text(name string) string {
	switch v := r.Cols[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Mapper turns a row into tags and an optional mapping override.
type Mapper func(Row) (map[string]string, func(*schema.Mapping))

// Query is one auxiliary layer. SQL receives the bounding box in the
// query's SRID as $1..$4 (min x, min y, max x, max y).
type Query struct {
	Name string
	SQL  string
	SRID int
	Map  Mapper
}

// Stats counts rows per query.
type Stats struct {
	Rows    int64
	Added   int64
	Invalid int64
}

// Run executes every query for the area bound (Web Mercator) and adds the
// resulting features to f. It stops at the first failing query.
func Run(ctx context.Context, q Querier, queries []Query, bound orb.Bound, f *element.Filter, logger *zap.Logger) (Stats, error) {
	var total Stats
	for _, query := range queries {
		start := time.Now()
		s, err := runQuery(ctx, q, query, bound, f, logger)
		if err != nil {
			return total, fmt.Errorf("failed to run %s query: %w", query.Name, err)
		}
		logger.Debug("Auxiliary query complete",
			zap.String("query", query.Name),
			zap.Int64("rows", s.Rows),
			zap.Int64("added", s.Added),
			zap.Int64("invalid", s.Invalid),
			zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
		total.Rows += s.Rows
		total.Added += s.Added
		total.Invalid += s.Invalid
	}
	return total, nil
}

func runQuery(ctx context.Context, q Querier, query Query, bound orb.Bound, f *element.Filter, logger *zap.Logger) (Stats, error) {
	var stats Stats
	b := bound
	if query.SRID == SRID4326 {
		b = proj.ToLonLat(bound.ToPolygon()).Bound()
	}
	rows, err := q.Query(ctx, query.SQL, b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	if len(fields) < 2 {
		return stats, fmt.Errorf("query returns %d columns, want at least 2", len(fields))
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return stats, err
		}
		stats.Rows++

		row, err := decodeRow(fields, values)
		if err != nil {
			stats.Invalid++
			logger.Warn("Skipping auxiliary row",
				zap.String("query", query.Name),
				zap.Int64("osm_id", row.ID),
				zap.Error(err))
			continue
		}
		tags, override := query.Map(row)
		if len(tags) == 0 {
			continue
		}
		e := f.Add(element.Source{
			ID:       row.ID,
			Origin:   element.OriginArea,
			Geom:     row.Geom,
			Mercator: query.SRID == SRID3857,
			Tags:     tags,
			Override: override,
		})
		if e != nil {
			stats.Added++
		}
	}
	return stats, rows.Err()
}

func decodeRow(fields []pgconn.FieldDescription, values []any) (Row, error) {
	row := Row{Cols: make(map[string]any, len(values)-2)}
	switch id := values[0].(type) {
	case int64:
		row.ID = id
	case int32:
		row.ID = int64(id)
	case nil:
	default:
		return row, fmt.Errorf("unexpected id type %T", values[0])
	}

	data, ok := values[1].([]byte)
	if !ok {
		return row, fmt.Errorf("unexpected geometry type %T", values[1])
	}
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return row, fmt.Errorf("failed to decode geometry: %w", err)
	}
	row.Geom = g

	for i := 2; i < len(values); i++ {
		row.Cols[fields[i].Name] = values[i]
	}
	return row, nil
}
