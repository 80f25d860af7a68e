package enrich

import (
	"sort"

	"github.com/sells-group/route-enrich/internal/model"
)

// Thresholds filters membership candidates. A pair qualifies only when
// its overlap length clears both the absolute floor and the given
// fraction of the route's total length.
type Thresholds struct {
	// MinLengthM is the absolute overlap floor in meters.
	MinLengthM float64
	// MinShare is the minimum overlap as a fraction of route length,
	// in [0, 1].
	MinShare float64
}

// AggregateMembership builds the per-route membership lists for one
// layer. Surviving pairs are ordered by descending overlap length, ties
// broken by ascending region code to match AssignPrimary. Routes with no
// surviving pairs get no entry at all, never an empty list.
//
// A route with zero total length fails the share test unconditionally;
// dividing by zero must never produce a false match.
func AggregateMembership(routes []model.Route, overlaps []model.Overlap, th Thresholds) map[int64]model.MembershipList {
	lengths := make(map[int64]float64, len(routes))
	for _, r := range routes {
		lengths[r.ID] = r.LengthM
	}

	grouped := make(map[int64][]model.MembershipEntry)
	for _, o := range overlaps {
		if o.LengthM < th.MinLengthM {
			continue
		}
		total := lengths[o.RouteID]
		if total <= 0 {
			continue
		}
		if o.LengthM/total < th.MinShare {
			continue
		}
		grouped[o.RouteID] = append(grouped[o.RouteID], model.MembershipEntry{
			Code:    o.Code,
			Name:    o.Name,
			LengthM: o.LengthM,
		})
	}

	lists := make(map[int64]model.MembershipList, len(grouped))
	for routeID, entries := range grouped {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].LengthM != entries[j].LengthM {
				return entries[i].LengthM > entries[j].LengthM
			}
			return entries[i].Code < entries[j].Code
		})
		lists[routeID] = model.MembershipList{RouteID: routeID, Entries: entries}
	}
	return lists
}
