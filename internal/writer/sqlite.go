package writer

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	_ "modernc.org/sqlite"

	"github.com/sells-group/route-enrich/internal/model"
)

// Artifacts is the SQLite database holding enriched routes and the
// companion lookup tables.
type Artifacts struct {
	db *sql.DB
}

// OpenArtifacts opens (or creates) the artifact database and configures
// WAL mode.
func OpenArtifacts(path string) (*Artifacts, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "writer: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "writer: exec %s", pragma)
		}
	}
	return &Artifacts{db: db}, nil
}

const artifactMigration = `
CREATE TABLE IF NOT EXISTS routes (
	route_id   INTEGER PRIMARY KEY,
	properties TEXT NOT NULL,
	geometry   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS regions (
	layer TEXT NOT NULL,
	code  TEXT NOT NULL,
	name  TEXT NOT NULL,
	PRIMARY KEY (layer, code)
);

CREATE TABLE IF NOT EXISTS operators (
	operator_code TEXT NOT NULL,
	operator_name TEXT NOT NULL,
	PRIMARY KEY (operator_code, operator_name)
);
`

// Migrate creates the artifact tables.
func (a *Artifacts) Migrate(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, artifactMigration)
	return eris.Wrap(err, "writer: migrate")
}

// Close closes the database.
func (a *Artifacts) Close() error {
	return a.db.Close()
}

// WriteRoutes replaces the routes table with the given records. The full
// field set (pass-through attributes plus enrichment fields) is stored as
// JSON; geometry is stored as GeoJSON text in the storage CRS.
func (a *Artifacts) WriteRoutes(ctx context.Context, records []model.OutputRecord) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "writer: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM routes`); err != nil {
		return eris.Wrap(err, "writer: clear routes")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO routes (route_id, properties, geometry) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "writer: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range records {
		props, err := json.Marshal(rec.Fields)
		if err != nil {
			return eris.Wrapf(err, "writer: marshal properties for route %d", rec.RouteID)
		}
		geomJSON, err := geojson.Marshal(rec.Geometry)
		if err != nil {
			return eris.Wrapf(err, "writer: marshal geometry for route %d", rec.RouteID)
		}
		if _, err := stmt.ExecContext(ctx, rec.RouteID, string(props), string(geomJSON)); err != nil {
			return eris.Wrapf(err, "writer: insert route %d", rec.RouteID)
		}
	}

	return eris.Wrap(tx.Commit(), "writer: commit routes")
}

// WriteRegions replaces the lookup rows for one layer.
func (a *Artifacts) WriteRegions(ctx context.Context, layer string, refs []model.RegionRef) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "writer: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM regions WHERE layer = ?`, layer); err != nil {
		return eris.Wrap(err, "writer: clear regions")
	}
	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO regions (layer, code, name) VALUES (?, ?, ?)`,
			layer, ref.Code, ref.Name); err != nil {
			return eris.Wrapf(err, "writer: insert region %s/%s", layer, ref.Code)
		}
	}

	return eris.Wrap(tx.Commit(), "writer: commit regions")
}

// WriteOperators replaces the operators table.
func (a *Artifacts) WriteOperators(ctx context.Context, ops []model.Operator) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "writer: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM operators`); err != nil {
		return eris.Wrap(err, "writer: clear operators")
	}
	for _, op := range ops {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO operators (operator_code, operator_name) VALUES (?, ?)`,
			op.Code, op.Name); err != nil {
			return eris.Wrapf(err, "writer: insert operator %s", op.Code)
		}
	}

	return eris.Wrap(tx.Commit(), "writer: commit operators")
}
