package history

import (
	"fmt"
	"strings"
)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	name   string
	schema []string
}

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS analysis_history (
			id              BIGSERIAL PRIMARY KEY,
			preview         TEXT NOT NULL,
			tone            TEXT NOT NULL,
			polarity        DOUBLE PRECISION NOT NULL,
			subjectivity    DOUBLE PRECISION NOT NULL,
			source_language TEXT NOT NULL DEFAULT '',
			translated      BOOLEAN NOT NULL DEFAULT FALSE,
			token_count     INTEGER NOT NULL DEFAULT 0,
			top_words       JSONB NOT NULL,
			created_at      BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_history_created ON analysis_history (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS analysis_snapshots (
			id          BIGSERIAL PRIMARY KEY,
			data        JSONB NOT NULL,
			captured_at BIGINT NOT NULL
		)`,
	},
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS analysis_history (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			preview         TEXT NOT NULL,
			tone            TEXT NOT NULL,
			polarity        REAL NOT NULL,
			subjectivity    REAL NOT NULL,
			source_language TEXT NOT NULL DEFAULT '',
			translated      INTEGER NOT NULL DEFAULT 0,
			token_count     INTEGER NOT NULL DEFAULT 0,
			top_words       TEXT NOT NULL,
			created_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_history_created ON analysis_history (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS analysis_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			data        TEXT NOT NULL,
			captured_at INTEGER NOT NULL
		)`,
	},
}

// rebind rewrites "?" placeholders into "$n" for postgres.
func (d dialect) rebind(query string) string {
	if d.name != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
