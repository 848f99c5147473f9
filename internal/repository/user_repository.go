package repository

import (
	"database/sql"

	"streamvault/internal/apperr"
	"streamvault/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, password_hash, is_admin, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

// Create inserts a user. The first user ever created is granted admin by
// the caller (the auth Handler's register endpoint), not by this layer.
func (r *UserRepository) Create(u *models.User) error {
	res, err := r.db.Exec(`INSERT INTO users (username, password_hash, is_admin) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, u.IsAdmin)
	if err != nil {
		return apperr.Wrap(apperr.Conflict, "username already taken", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "read inserted user id", err)
	}
	u.ID = id
	return nil
}

func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get user by username", err)
	}
	return u, nil
}

func (r *UserRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.Internal, "count users", err)
	}
	return n, nil
}

// List returns every user, oldest first, for the admin user list.
func (r *UserRepository) List() ([]*models.User, error) {
	rows, err := r.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan user", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete user", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// IsTokenRevoked checks the blacklist populated on logout. is_admin is never
// trusted from a JWT claim — every admin-gated request re-reads this table's
// sibling (users.is_admin) via GetByID instead.
func (r *UserRepository) IsTokenRevoked(tokenHash string) (bool, error) {
	var exists int
	err := r.db.QueryRow(`SELECT 1 FROM revoked_tokens WHERE token_hash = ?`, tokenHash).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "check revoked token", err)
	}
	return true, nil
}

func (r *UserRepository) RevokeToken(tokenHash string) error {
	_, err := r.db.Exec(`INSERT OR IGNORE INTO revoked_tokens (token_hash) VALUES (?)`, tokenHash)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "revoke token", err)
	}
	return nil
}
