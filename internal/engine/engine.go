// Package engine defines the geometry engine capability set consumed by
// the enrichment pipeline and its PostGIS-backed implementation. The
// pipeline never computes geometry primitives itself; everything spatial
// goes through an Engine.
package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ErrUndefinedLength is returned by Length when the engine cannot measure
// the geometry. Callers treat an undefined overlap length as a non-match,
// not as a failure.
var ErrUndefinedLength = eris.New("engine: undefined length")

// Engine is the set of geometry primitives the pipeline depends on. All
// geometries are two-dimensional lines or polygons; CRS identifiers are
// explicit SRIDs (geographic for storage, a planar meter-based CRS for
// measurement). Implementations may block; calls are treated as
// synchronous.
type Engine interface {
	// IsValid reports whether the geometry is topologically valid.
	IsValid(ctx context.Context, g geom.T) (bool, error)

	// Repair attempts a best-effort validity fix. The result may still be
	// invalid; callers must re-check with IsValid.
	Repair(ctx context.Context, g geom.T) (geom.T, error)

	// Project reprojects the geometry between the given SRIDs.
	Project(ctx context.Context, g geom.T, fromSRID, toSRID int) (geom.T, error)

	// Intersects reports whether the two geometries spatially intersect.
	Intersects(ctx context.Context, a, b geom.T) (bool, error)

	// Intersection returns the shared geometry of a and b.
	Intersection(ctx context.Context, a, b geom.T) (geom.T, error)

	// Length returns the length of the geometry in CRS units. Returns
	// ErrUndefinedLength when the engine cannot produce a measurement.
	Length(ctx context.Context, g geom.T) (float64, error)

	// Distance returns the minimum distance between the two geometries in
	// CRS units.
	Distance(ctx context.Context, a, b geom.T) (float64, error)
}
