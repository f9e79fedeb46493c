// FilePath: internal/repository/sqlite/sqlite.user.go
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/database"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
)

type UserRepo struct {
	SQLiteBaseRepo
}

func NewUserRepository(db database.DB) (*UserRepo, error) {
	repo := &UserRepo{SQLiteBaseRepo: SQLiteBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *UserRepo) initializeSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`

	_, err := r.db.GetDB().Exec(query)
	if err != nil {
		return errors.NewDatabaseError("failed to initialize users schema", err)
	}
	return nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO users (email, password_hash, created_at)
		VALUES (:email, :password_hash, :created_at)`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return errors.NewDatabaseError("failed to create user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewDatabaseError("failed to get user id", err)
	}
	user.ID = id
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT * FROM users WHERE email = ?`

	err := r.db.GetDB().GetContext(ctx, user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get user", err)
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT * FROM users WHERE id = ?`

	err := r.db.GetDB().GetContext(ctx, user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get user", err)
	}
	return user, nil
}

// isUniqueViolation matches the go-sqlite3 constraint error without pulling
// the driver's cgo types into call sites.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
