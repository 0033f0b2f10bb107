package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/SalehHub/authx-auth/internal/db"
)

// Postgres is the database-backed UserStore. The table name comes from
// configuration; its live columns define the field capability set.
type Postgres struct {
	db    *db.DB
	table string
}

func NewPostgres(database *db.DB, table string) *Postgres {
	return &Postgres{db: database, table: table}
}

// Check verifies at startup that the configured table exists and carries an
// email column. Failure is a deployment error, not a per-request condition.
func (s *Postgres) Check(ctx context.Context) error {
	fields, err := s.SupportedFields(ctx)
	if err != nil {
		return err
	}
	if !fields.Has("email") {
		return fmt.Errorf("%w: table %q has no email column", ErrRecordTypeUnavailable, s.table)
	}
	return nil
}

func (s *Postgres) SupportedFields(ctx context.Context) (FieldSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name = $1
	`, s.table)
	if err != nil {
		return nil, fmt.Errorf("%w: list columns: %v", ErrRecordTypeUnavailable, err)
	}
	defer rows.Close()

	fields := make(FieldSet)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan column: %v", ErrRecordTypeUnavailable, err)
		}
		fields[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list columns: %v", ErrRecordTypeUnavailable, err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: table %q not found", ErrRecordTypeUnavailable, s.table)
	}

	return fields, nil
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*Record, error) {
	query := fmt.Sprintf(
		`SELECT * FROM %s WHERE email = $1`,
		pq.QuoteIdentifier(s.table),
	)

	rows, err := s.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	record, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return record, rows.Err()
}

func (s *Postgres) Upsert(ctx context.Context, email string, attrs map[string]any) (*Record, error) {
	if email == "" {
		return nil, fmt.Errorf("store: refusing to persist record without email")
	}

	query, args := buildUpsert(s.table, email, attrs)

	var id uuid.UUID
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, err
	}

	record, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

// buildUpsert renders a single-statement, email-keyed create-or-update.
// Attribute order is sorted so the generated SQL is deterministic.
func buildUpsert(table, email string, attrs map[string]any) (string, []any) {
	columns := make([]string, 0, len(attrs))
	for col := range attrs {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	insertCols := []string{"id", "email"}
	args := []any{uuid.New(), email}

	// email = EXCLUDED.email is a no-op that keeps the statement valid when
	// no attributes resolved; updated_at is not assumed to exist.
	updates := []string{"email = EXCLUDED.email"}

	for _, col := range columns {
		insertCols = append(insertCols, pq.QuoteIdentifier(col))
		args = append(args, attrs[col])
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(col), pq.QuoteIdentifier(col)))
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (email) DO UPDATE SET %s RETURNING id`,
		pq.QuoteIdentifier(table),
		strings.Join(insertCols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	return query, args
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	record := &Record{Attrs: make(map[string]any, len(columns))}
	for i, col := range columns {
		val := values[i]
		if b, ok := val.([]byte); ok {
			val = string(b)
		}

		switch col {
		case "id":
			record.ID = fmt.Sprintf("%v", val)
		case "email":
			if s, ok := val.(string); ok {
				record.Email = s
			}
		default:
			record.Attrs[col] = val
		}
	}

	return record, nil
}
