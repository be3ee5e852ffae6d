package sqlite

import "github.com/example/therapist-scheduler/internal/persistence/sqlite/migration"

// Migrations returns the schema migration set in version order.
func Migrations() []migration.Migration {
	return []migration.Migration{
		{
			Version:     "001",
			Description: "therapists and appointments",
			SQL: `
				CREATE TABLE therapists (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					timezone TEXT NOT NULL,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				);

				CREATE TABLE appointments (
					id TEXT PRIMARY KEY,
					therapist_id TEXT NOT NULL REFERENCES therapists(id) ON DELETE CASCADE,
					starts_at TEXT NOT NULL,
					ends_at TEXT NOT NULL,
					is_cancelled INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					CHECK (ends_at > starts_at)
				);

				CREATE INDEX appointments_therapist_starts_idx
					ON appointments(therapist_id, starts_at);
			`,
		},
		{
			Version:     "002",
			Description: "recurrence rules",
			SQL: `
				CREATE TABLE rules (
					id TEXT PRIMARY KEY,
					therapist_id TEXT NOT NULL REFERENCES therapists(id) ON DELETE CASCADE,
					kind TEXT NOT NULL CHECK (kind IN ('time_off', 'working_hours')),
					cadence TEXT NOT NULL CHECK (cadence IN ('daily', 'weekly')),
					weekday INTEGER CHECK (weekday BETWEEN 0 AND 6),
					repeat_interval INTEGER NOT NULL DEFAULT 1 CHECK (repeat_interval >= 1),
					start_date TEXT NOT NULL,
					start_time TEXT NOT NULL,
					end_time TEXT NOT NULL,
					repeat_until TEXT,
					note TEXT NOT NULL DEFAULT '',
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				);

				CREATE INDEX rules_therapist_kind_active_idx
					ON rules(therapist_id, kind, is_active);
			`,
		},
		{
			Version:     "003",
			Description: "occurrences with dedup index",
			SQL: `
				CREATE TABLE occurrences (
					id TEXT PRIMARY KEY,
					therapist_id TEXT NOT NULL REFERENCES therapists(id) ON DELETE CASCADE,
					rule_id TEXT REFERENCES rules(id) ON DELETE CASCADE,
					kind TEXT NOT NULL CHECK (kind IN ('time_off', 'working_hours')),
					starts_at TEXT NOT NULL,
					ends_at TEXT NOT NULL,
					note TEXT NOT NULL DEFAULT '',
					is_skipped INTEGER NOT NULL DEFAULT 0,
					is_generated INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					CHECK (ends_at > starts_at)
				);

				CREATE UNIQUE INDEX occurrences_rule_starts_idx
					ON occurrences(rule_id, starts_at) WHERE rule_id IS NOT NULL;

				CREATE INDEX occurrences_therapist_kind_starts_idx
					ON occurrences(therapist_id, kind, starts_at);
			`,
		},
	}
}
