package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser() *domain.User {
	return &domain.User{
		ID:           7,
		Username:     "alice",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		Role:         domain.RoleConsumer,
		IsActive:     true,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func userColumns() []string {
	return []string{"id", "username", "password_hash", "role", "store_name", "headline", "is_active", "created_at"}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userColumns()).AddRow(
		u.ID, u.Username, u.PasswordHash, string(u.Role),
		u.StoreName, u.Headline, u.IsActive, u.CreatedAt,
	)
}

func TestUserRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()
	u.ID = 0

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Username, u.PasswordHash, u.Role, u.StoreName, u.Headline, u.IsActive).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))

	err = repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Username, u.PasswordHash, u.Role, u.StoreName, u.Headline, u.IsActive).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err = repo.Create(context.Background(), u)
	assert.True(t, errors.Is(err, ErrDuplicateUsername))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	u := newTestUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE username").
		WithArgs(u.Username).
		WillReturnRows(userRow(u))

	result, err := repo.GetByUsername(context.Background(), u.Username)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, u.ID, result.ID)
	assert.Equal(t, domain.RoleConsumer, result.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows(userColumns()))

	result, err := repo.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
