// Package model defines the domain types shared across the enrichment
// pipeline: routes, region layers, overlaps, and the derived assignment
// and membership tables.
package model

import (
	"strings"

	"github.com/twpayne/go-geom"
)

// MembershipDelimiter wraps and separates values in serialized membership
// lists, e.g. three regions become "|A|B|C|".
const MembershipDelimiter = "|"

// Route is one transport route. Geometry holds the original geographic
// coordinates; Projected and LengthM are filled in during preparation and
// are expressed in the planar measurement CRS. Routes are immutable after
// preparation.
type Route struct {
	ID        int64
	Geometry  geom.T
	Projected geom.T
	LengthM   float64
	Attrs     map[string]any
}

// Region is one boundary polygon in a region layer. Projected is the
// validity-repaired geometry in the measurement CRS.
type Region struct {
	Code      string
	Name      string
	Geometry  geom.T
	Projected geom.T
}

// Layer is one region classification scheme, e.g. local authorities ("la")
// or regional transport partnerships ("rpt"). The key prefixes the output
// field names: laCode, laName, laCodes, laNames.
type Layer struct {
	Key     string
	Regions []Region
}

// Overlap records one intersecting (route, region) pair with its measured
// overlap length in meters. LengthM is always > 0; non-positive or
// unmeasurable intersections are never recorded.
type Overlap struct {
	RouteID int64
	Code    string
	Name    string
	LengthM float64
}

// PrimaryAssignment is the single best-matching region for a route within
// one layer.
type PrimaryAssignment struct {
	RouteID int64
	Code    string
	Name    string
}

// MembershipEntry is one qualifying region in a route's membership list.
type MembershipEntry struct {
	Code    string
	Name    string
	LengthM float64
}

// MembershipList is the ordered set of qualifying regions for a route
// within one layer, sorted by descending overlap length.
type MembershipList struct {
	RouteID int64
	Entries []MembershipEntry
}

// Codes serializes the region codes as a pipe-delimited string. Returns
// the empty string when the list has no entries.
func (m MembershipList) Codes() string {
	return joinWrapped(m.Entries, func(e MembershipEntry) string { return e.Code })
}

// Names serializes the region names in the same order as Codes.
func (m MembershipList) Names() string {
	return joinWrapped(m.Entries, func(e MembershipEntry) string { return e.Name })
}

func joinWrapped(entries []MembershipEntry, field func(MembershipEntry) string) string {
	if len(entries) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(MembershipDelimiter)
	for _, e := range entries {
		sb.WriteString(field(e))
		sb.WriteString(MembershipDelimiter)
	}
	return sb.String()
}

// RegionRef is a deduplicated (code, name) pair, emitted per layer for
// lookup UIs.
type RegionRef struct {
	Code string
	Name string
}

// Operator is a deduplicated operator identity found in route attributes.
type Operator struct {
	Code string
	Name string
}

// OutputRecord is one enriched route ready for serialization. Fields holds
// the pass-through attributes plus the per-layer primary and membership
// fields; absent assignments are simply missing keys. Geometry is the
// original geographic geometry.
type OutputRecord struct {
	RouteID  int64
	Geometry geom.T
	Fields   map[string]any
}
