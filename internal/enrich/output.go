package enrich

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/route-enrich/internal/model"
)

// LayerOutcome bundles the derived tables for one region layer, keyed by
// route id.
type LayerOutcome struct {
	Key        string
	Primary    map[int64]model.PrimaryAssignment
	Membership map[int64]model.MembershipList
}

// fieldNames returns the four output field names for a layer key, e.g.
// "la" -> laCode, laName, laCodes, laNames.
func fieldNames(key string) (code, name, codes, names string) {
	return key + "Code", key + "Name", key + "Codes", key + "Names"
}

// Assemble left-joins the original route attributes with each layer's
// primary assignment and membership list. Every input route yields
// exactly one record; primary and membership fields are simply absent
// when there was no match. Input attributes that collide with an output
// field name are dropped with a warning, and the original geographic
// geometry is carried through untouched. Returns the records and the
// number of dropped attributes.
func Assemble(routes []model.Route, outcomes []LayerOutcome) ([]model.OutputRecord, int) {
	reserved := make(map[string]bool, len(outcomes)*4)
	for _, oc := range outcomes {
		code, name, codes, names := fieldNames(oc.Key)
		reserved[code] = true
		reserved[name] = true
		reserved[codes] = true
		reserved[names] = true
	}

	log := zap.L().With(zap.String("component", "enrich"))
	dropped := 0

	records := make([]model.OutputRecord, 0, len(routes))
	for _, route := range routes {
		fields := make(map[string]any, len(route.Attrs)+len(reserved))
		for k, v := range route.Attrs {
			if reserved[k] {
				dropped++
				log.Warn("dropping route attribute shadowed by output field",
					zap.Int64("route_id", route.ID),
					zap.String("attribute", k),
				)
				continue
			}
			fields[k] = v
		}

		for _, oc := range outcomes {
			code, name, codes, names := fieldNames(oc.Key)
			if pa, ok := oc.Primary[route.ID]; ok {
				fields[code] = pa.Code
				fields[name] = pa.Name
			}
			if ml, ok := oc.Membership[route.ID]; ok {
				fields[codes] = ml.Codes()
				fields[names] = ml.Names()
			}
		}

		records = append(records, model.OutputRecord{
			RouteID:  route.ID,
			Geometry: route.Geometry,
			Fields:   fields,
		})
	}

	return records, dropped
}

// RegionLookup returns the deduplicated (code, name) table for a layer,
// sorted by code, for downstream lookup UIs.
func RegionLookup(layer model.Layer) []model.RegionRef {
	seen := make(map[string]bool, len(layer.Regions))
	refs := make([]model.RegionRef, 0, len(layer.Regions))
	for _, r := range layer.Regions {
		if seen[r.Code] {
			continue
		}
		seen[r.Code] = true
		refs = append(refs, model.RegionRef{Code: r.Code, Name: r.Name})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Code < refs[j].Code })
	return refs
}

// Operators returns the deduplicated operator (code, name) pairs found in
// the assembled records, sorted by code. Records without either field are
// skipped.
func Operators(records []model.OutputRecord) []model.Operator {
	seen := make(map[model.Operator]bool)
	var ops []model.Operator
	for _, rec := range records {
		code := stringField(rec.Fields, "operatorCode")
		name := stringField(rec.Fields, "operatorName")
		if code == "" && name == "" {
			continue
		}
		op := model.Operator{Code: code, Name: name}
		if seen[op] {
			continue
		}
		seen[op] = true
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Code != ops[j].Code {
			return ops[i].Code < ops[j].Code
		}
		return ops[i].Name < ops[j].Name
	})
	return ops
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
