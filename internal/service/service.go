package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/auth"
	"github.com/Dan9191/loan-tracker/internal/models"
	"github.com/Dan9191/loan-tracker/internal/repository"
	"github.com/Dan9191/loan-tracker/internal/utils"
)

const minPasswordLength = 6

// Service handles business logic
type Service struct {
	repo        repository.Storage
	log         *logrus.Logger
	tokens      *auth.Tokens
	sealer      *utils.Sealer
	chartMonths int
	now         func() time.Time
}

// NewService initializes a new service
func NewService(repo repository.Storage, log *logrus.Logger, tokens *auth.Tokens, sealer *utils.Sealer, chartMonths int) *Service {
	return &Service{
		repo:        repo,
		log:         log,
		tokens:      tokens,
		sealer:      sealer,
		chartMonths: chartMonths,
		now:         time.Now,
	}
}

// Register creates a new user with hashed password and an empty capital
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.New(apperr.Validation, "email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Newf(apperr.Validation, "password must be at least %d characters", minPasswordLength)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
	}
	err = s.repo.InTx(ctx, func(tx repository.Storage) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.CreateCapital(ctx, &models.Capital{UserID: user.ID, InitialCapital: decimal.Zero, UpdatedAt: now})
	})
	if apperr.Is(err, apperr.Conflict) {
		return nil, apperr.New(apperr.Conflict, "email already registered")
	}
	if err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if apperr.Is(err, apperr.NotFound) {
		return "", apperr.New(apperr.Unauthenticated, "invalid credentials")
	}
	if err != nil {
		return "", err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", apperr.New(apperr.Unauthenticated, "invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return token, nil
}

// parseID parses a path id. A malformed id cannot name an existing row, so
// it is reported as not found.
func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.NotFound, "%s not found", what)
	}
	return id, nil
}
