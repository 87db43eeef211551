package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateUsername is returned when an INSERT hits the users
// username unique constraint. The service layer maps it to AUTH_002.
var ErrDuplicateUsername = errors.New("username already exists")

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userSelect = `SELECT id, username, password_hash, role, store_name, headline, is_active, created_at
	FROM users`

// Create inserts a new user and backfills ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (username, password_hash, role, store_name, headline, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		user.Username, user.PasswordHash, user.Role,
		user.StoreName, user.Headline, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID fetches a user by primary key. Returns (nil, nil) when absent.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByUsername fetches a user by username. Returns (nil, nil) when absent.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role,
		&u.StoreName, &u.Headline, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}
