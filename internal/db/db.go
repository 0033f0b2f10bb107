package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

// migrationTemplate creates the default users table. Deployments that
// manage their own schema may drop any of the optional identity columns;
// the store derives its field capabilities from the live columns.
const migrationTemplate = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS %s (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    email text NOT NULL,
    name text,
    nickname text,
    avatar text,
    authx_id text,
    auth_provider text,
    google_id text,
    github_id text,
    gitlab_id text,
    microsoft_id text,
    email_verified_at timestamptz,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (email);
`

// RunUserMigration creates the users table when it does not exist yet.
// Email uniqueness is enforced by the database so concurrent callbacks for
// the same address cannot create two records.
func RunUserMigration(ctx context.Context, db *sql.DB, table string) error {
	stmt := fmt.Sprintf(
		migrationTemplate,
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(table+"_email_unique"),
		pq.QuoteIdentifier(table),
	)

	_, err := db.ExecContext(ctx, stmt)
	return err
}
