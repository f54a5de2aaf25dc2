package credstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS credential_sources (
	cred_id           BLOB PRIMARY KEY,
	type              TEXT NOT NULL,
	rp_id             TEXT NOT NULL,
	user_id           BLOB NOT NULL,
	user_name         TEXT NOT NULL,
	user_display_name TEXT NOT NULL,
	aaguid            BLOB NOT NULL,
	key_label         TEXT NOT NULL,
	signature_counter INTEGER NOT NULL DEFAULT 0,
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credential_sources_rp_id ON credential_sources (rp_id);
`

// SQLite stores credential sources in a single-file SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if necessary) the database at path and
// bootstraps the schema. WAL keeps concurrent readers cheap; the busy
// timeout serializes concurrent counter increments instead of failing
// them with SQLITE_BUSY.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Store(ctx context.Context, src *CredentialSource) error {
	createdAt := src.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credential_sources
			(cred_id, type, rp_id, user_id, user_name, user_display_name, aaguid, key_label, signature_counter, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cred_id) DO UPDATE SET
			type = excluded.type,
			rp_id = excluded.rp_id,
			user_id = excluded.user_id,
			user_name = excluded.user_name,
			user_display_name = excluded.user_display_name,
			aaguid = excluded.aaguid,
			key_label = excluded.key_label`,
		src.ID, src.Type, src.RPID, src.UserHandle, src.UserName,
		src.UserDisplayName, src.AAGUID, src.KeyLabel, src.SignatureCounter,
		createdAt.Unix())
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, id []byte) (*CredentialSource, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT cred_id, type, rp_id, user_id, user_name, user_display_name,
		       aaguid, key_label, signature_counter, created_at
		FROM credential_sources WHERE cred_id = ?`, id)
	src, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return src, nil
}

func (s *SQLite) LoadAll(ctx context.Context, rpID string) ([]*CredentialSource, error) {
	query := `
		SELECT cred_id, type, rp_id, user_id, user_name, user_display_name,
		       aaguid, key_label, signature_counter, created_at
		FROM credential_sources`
	args := []any{}
	if rpID != "" {
		query += ` WHERE rp_id = ?`
		args = append(args, rpID)
	}
	query += ` ORDER BY created_at, cred_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	var out []*CredentialSource
	for rows.Next() {
		src, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return out, nil
}

func (s *SQLite) Delete(ctx context.Context, id []byte) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credential_sources WHERE cred_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteAll(ctx context.Context, aaguid []byte) error {
	var err error
	if aaguid == nil {
		_, err = s.db.ExecContext(ctx, `DELETE FROM credential_sources`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM credential_sources WHERE aaguid = ?`, aaguid)
	}
	if err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

// IncreaseSignatureCounter runs a single UPDATE ... RETURNING so the
// read-modify-write happens inside SQLite's write lock. Two concurrent
// assertions for the same credential always observe distinct values.
func (s *SQLite) IncreaseSignatureCounter(ctx context.Context, id []byte) (uint32, error) {
	var counter uint32
	err := s.db.QueryRowContext(ctx, `
		UPDATE credential_sources
		SET signature_counter = signature_counter + 1
		WHERE cred_id = ?
		RETURNING signature_counter`, id).Scan(&counter)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment signature counter: %w", err)
	}
	return counter, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*CredentialSource, error) {
	var src CredentialSource
	var createdAt int64
	err := row.Scan(&src.ID, &src.Type, &src.RPID, &src.UserHandle,
		&src.UserName, &src.UserDisplayName, &src.AAGUID, &src.KeyLabel,
		&src.SignatureCounter, &createdAt)
	if err != nil {
		return nil, err
	}
	src.CreatedAt = time.Unix(createdAt, 0)
	return &src, nil
}
