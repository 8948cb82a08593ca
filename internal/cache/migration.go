package cache

import (
	"database/sql"
	"fmt"
)

// family names a group of tables that share a single schema_version row.
// Each of the three data families (frl, log, nul) is versioned
// independently, since a future schema change to one need not touch the
// others.
type family string

const (
	familyFRL family = "frl"
	familyLog family = "log"
	familyNul family = "nul"
)

// currentSchemaVersion is bumped whenever a family's table definitions
// change in a way that requires a migration step. All three families
// currently sit at version 1: the original design kept the schema_version
// row only for the log family (adlu-proxy/src/cache/log.rs); this
// generalizes it uniformly so any future change to the FRL or NUL tables
// gets the same forward-migration hook instead of a silent ALTER TABLE.
const currentSchemaVersion = 1

const migrationSchema = `
create table if not exists schema_version (
	family text not null unique,
	version integer not null
);`

// migrateFamily ensures family's schema_version row exists and matches
// currentSchemaVersion, running any needed upgrade steps in between. With
// only version 1 defined so far this is a no-op beyond bookkeeping, but
// the switch below is where a version 1 -> 2 step would be added.
func migrateFamily(db *sql.DB, f family) error {
	if _, err := db.Exec(migrationSchema); err != nil {
		return fmt.Errorf("cache: init schema_version table: %w", err)
	}

	var version int
	err := db.QueryRow(`select version from schema_version where family = ?`, string(f)).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = db.Exec(
			`insert into schema_version (family, version) values (?, ?)`,
			string(f), currentSchemaVersion,
		)
		if err != nil {
			return fmt.Errorf("cache: seed schema_version for %s: %w", f, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("cache: read schema_version for %s: %w", f, err)
	}

	for version < currentSchemaVersion {
		version++
		switch version {
		// case 2: would hold the version 1 -> 2 upgrade statements.
		}
	}

	_, err = db.Exec(
		`insert into schema_version (family, version) values (?, ?)
		 on conflict(family) do update set version = excluded.version`,
		string(f), version,
	)
	if err != nil {
		return fmt.Errorf("cache: update schema_version for %s: %w", f, err)
	}
	return nil
}
