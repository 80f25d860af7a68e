package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/route-enrich/internal/db"
)

// PostGIS implements Engine by delegating every primitive to a PostGIS
// database. Geometries cross the wire as EWKB.
type PostGIS struct {
	pool db.Pool
}

// NewPostGIS creates a PostGIS-backed engine over the given pool. The
// connected database must have the postgis extension installed.
func NewPostGIS(pool db.Pool) *PostGIS {
	return &PostGIS{pool: pool}
}

func encode(g geom.T) ([]byte, error) {
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "engine: encode EWKB")
	}
	return data, nil
}

func decode(data []byte) (geom.T, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "engine: decode EWKB")
	}
	return g, nil
}

// IsValid reports topological validity via ST_IsValid.
func (p *PostGIS) IsValid(ctx context.Context, g geom.T) (bool, error) {
	data, err := encode(g)
	if err != nil {
		return false, err
	}
	var valid bool
	err = p.pool.QueryRow(ctx,
		`SELECT ST_IsValid(ST_GeomFromEWKB($1))`, data,
	).Scan(&valid)
	if err != nil {
		return false, eris.Wrap(err, "engine: ST_IsValid")
	}
	return valid, nil
}

// Repair applies ST_MakeValid followed by a zero-width buffer, the
// standard cleanup for self-intersecting boundary polygons.
func (p *PostGIS) Repair(ctx context.Context, g geom.T) (geom.T, error) {
	data, err := encode(g)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = p.pool.QueryRow(ctx,
		`SELECT ST_AsEWKB(ST_Buffer(ST_MakeValid(ST_GeomFromEWKB($1)), 0))`, data,
	).Scan(&out)
	if err != nil {
		return nil, eris.Wrap(err, "engine: ST_MakeValid")
	}
	return decode(out)
}

// Project reprojects via ST_Transform, forcing the source SRID so
// geometries decoded without one are handled uniformly.
func (p *PostGIS) Project(ctx context.Context, g geom.T, fromSRID, toSRID int) (geom.T, error) {
	data, err := encode(g)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = p.pool.QueryRow(ctx,
		`SELECT ST_AsEWKB(ST_Transform(ST_SetSRID(ST_GeomFromEWKB($1), $2), $3))`,
		data, fromSRID, toSRID,
	).Scan(&out)
	if err != nil {
		return nil, eris.Wrap(err, "engine: ST_Transform")
	}
	return decode(out)
}

// Intersects runs the ST_Intersects predicate.
func (p *PostGIS) Intersects(ctx context.Context, a, b geom.T) (bool, error) {
	aData, err := encode(a)
	if err != nil {
		return false, err
	}
	bData, err := encode(b)
	if err != nil {
		return false, err
	}
	var hit bool
	err = p.pool.QueryRow(ctx,
		`SELECT ST_Intersects(ST_GeomFromEWKB($1), ST_GeomFromEWKB($2))`, aData, bData,
	).Scan(&hit)
	if err != nil {
		return false, eris.Wrap(err, "engine: ST_Intersects")
	}
	return hit, nil
}

// Intersection returns the shared geometry via ST_Intersection.
func (p *PostGIS) Intersection(ctx context.Context, a, b geom.T) (geom.T, error) {
	aData, err := encode(a)
	if err != nil {
		return nil, err
	}
	bData, err := encode(b)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = p.pool.QueryRow(ctx,
		`SELECT ST_AsEWKB(ST_Intersection(ST_GeomFromEWKB($1), ST_GeomFromEWKB($2)))`, aData, bData,
	).Scan(&out)
	if err != nil {
		return nil, eris.Wrap(err, "engine: ST_Intersection")
	}
	return decode(out)
}

// Length measures the geometry with ST_Length. A NULL result maps to
// ErrUndefinedLength.
func (p *PostGIS) Length(ctx context.Context, g geom.T) (float64, error) {
	data, err := encode(g)
	if err != nil {
		return 0, err
	}
	var length *float64
	err = p.pool.QueryRow(ctx,
		`SELECT ST_Length(ST_GeomFromEWKB($1))`, data,
	).Scan(&length)
	if err != nil {
		return 0, eris.Wrap(err, "engine: ST_Length")
	}
	if length == nil {
		return 0, ErrUndefinedLength
	}
	return *length, nil
}

// Distance returns the minimum planar distance via ST_Distance.
func (p *PostGIS) Distance(ctx context.Context, a, b geom.T) (float64, error) {
	aData, err := encode(a)
	if err != nil {
		return 0, err
	}
	bData, err := encode(b)
	if err != nil {
		return 0, err
	}
	var dist float64
	err = p.pool.QueryRow(ctx,
		`SELECT ST_Distance(ST_GeomFromEWKB($1), ST_GeomFromEWKB($2))`, aData, bData,
	).Scan(&dist)
	if err != nil {
		return 0, eris.Wrap(err, "engine: ST_Distance")
	}
	return dist, nil
}
