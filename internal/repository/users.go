package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

var userColumns = []string{"id", "email", "password_hash", "name", "role", "created_at", "updated_at"}

func (q *Queries) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := q.exec(ctx, psql().Insert("users").
		Columns(userColumns...).
		Values(u.ID, strings.ToLower(u.Email), u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt))
	return err
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u := new(domain.User)
	err := q.get(ctx, u, psql().Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := new(domain.User)
	err := q.get(ctx, u, psql().Select(userColumns...).From("users").
		Where(sq.Eq{"email": strings.ToLower(email)}))
	if err != nil {
		return nil, err
	}
	return u, nil
}

var sessionColumns = []string{"id", "user_id", "token_hash", "expires_at", "created_at"}

func (q *Queries) CreateSession(ctx context.Context, s *domain.Session) error {
	_, err := q.exec(ctx, psql().Insert("sessions").
		Columns(sessionColumns...).
		Values(s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.CreatedAt))
	return err
}

func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	s := new(domain.Session)
	err := q.get(ctx, s, psql().Select(sessionColumns...).From("sessions").
		Where(sq.Eq{"token_hash": tokenHash}))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (q *Queries) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := q.exec(ctx, psql().Delete("sessions").Where(sq.Eq{"token_hash": tokenHash}))
	return err
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return q.exec(ctx, psql().Delete("sessions").Where(sq.LtOrEq{"expires_at": now}))
}
