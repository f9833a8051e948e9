package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/models"
)

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	_, err := r.exec(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, timeArg(user.CreatedAt))
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.Conflict, err, "user already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	var created nullTime
	err := r.queryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = ?`, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.CreatedAt = created.Time
	return user, nil
}

// CreateCapital creates the capital row of a user
func (r *Repository) CreateCapital(ctx context.Context, capital *models.Capital) error {
	_, err := r.exec(ctx, `
		INSERT INTO users_capital (user_id, initial_capital, updated_at)
		VALUES (?, ?, ?)`,
		capital.UserID, capital.InitialCapital, timeArg(capital.UpdatedAt))
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.Conflict, err, "capital already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to create capital: %w", err)
	}
	return nil
}

// GetCapital retrieves the stored capital of a user. CurrentCapital is left
// zero; callers derive it from payments.
func (r *Repository) GetCapital(ctx context.Context, userID uuid.UUID) (*models.Capital, error) {
	capital := &models.Capital{}
	var updated nullTime
	err := r.queryRow(ctx, `
		SELECT user_id, initial_capital, updated_at
		FROM users_capital
		WHERE user_id = ?`, userID).
		Scan(&capital.UserID, &capital.InitialCapital, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "capital not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capital: %w", err)
	}
	capital.UpdatedAt = updated.Time
	return capital, nil
}

// UpdateInitialCapital sets the initial capital of a user
func (r *Repository) UpdateInitialCapital(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	res, err := r.exec(ctx, `
		UPDATE users_capital SET initial_capital = ?, updated_at = ?
		WHERE user_id = ?`,
		amount, timeArg(at), userID)
	if err != nil {
		return fmt.Errorf("failed to update capital: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "capital not found")
	}
	return nil
}
