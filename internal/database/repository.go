package database

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when no session row is stored.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SaveTokens(access, refresh string) error {
	_, err := r.db.Exec(`
		INSERT INTO session (id, access_token, refresh_token) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = datetime('now')
	`, access, nullIfEmpty(refresh))
	return err
}

func (r *Repository) LoadTokens() (access, refresh string, err error) {
	var rt sql.NullString
	err = r.db.QueryRow(`SELECT access_token, refresh_token FROM session WHERE id = 1`).Scan(&access, &rt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return access, rt.String, nil
}

func (r *Repository) DeleteTokens() error {
	_, err := r.db.Exec(`DELETE FROM session WHERE id = 1`)
	return err
}

// DeleteTokensIf removes the session only when it still holds access. It
// reports whether a row was deleted.
func (r *Repository) DeleteTokensIf(access string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM session WHERE id = 1 AND access_token = ?`, access)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
