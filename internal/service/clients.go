package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/auth"
	"github.com/Dan9191/loan-tracker/internal/models"
	"github.com/Dan9191/loan-tracker/internal/repository"
)

// CreateClient records a borrower. Phone number and address are sealed
// before they reach storage.
func (s *Service) CreateClient(ctx context.Context, in models.NewClient) (*models.Client, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.Validation, "name is required")
	}

	client := &models.Client{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Address:     strings.TrimSpace(in.Address),
		CreatedAt:   s.now(),
	}
	if in.CollateralImageURL != nil {
		if url := strings.TrimSpace(*in.CollateralImageURL); url != "" {
			client.CollateralImageURL = &url
		}
	}

	stored := *client
	if stored.PhoneNumber, err = s.sealer.Seal(client.PhoneNumber); err != nil {
		return nil, fmt.Errorf("failed to seal phone number: %w", err)
	}
	if stored.Address, err = s.sealer.Seal(client.Address); err != nil {
		return nil, fmt.Errorf("failed to seal address: %w", err)
	}
	if err := s.repo.CreateClient(ctx, &stored); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).Infof("Client created: %s", client.ID)
	return client, nil
}

// ListClients returns the caller's clients, newest first
func (s *Service) ListClients(ctx context.Context) ([]models.Client, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	clients, err := s.repo.ListClients(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if clients[i].PhoneNumber, err = s.sealer.Open(clients[i].PhoneNumber); err != nil {
			return nil, fmt.Errorf("failed to open phone number of client %s: %w", clients[i].ID, err)
		}
		if clients[i].Address, err = s.sealer.Open(clients[i].Address); err != nil {
			return nil, fmt.Errorf("failed to open address of client %s: %w", clients[i].ID, err)
		}
	}
	return clients, nil
}

// DeleteClient removes a client that no loan references
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return err
	}
	clientID, err := parseID(id, "client")
	if err != nil {
		return err
	}

	err = s.repo.InTx(ctx, func(tx repository.Storage) error {
		if _, err := tx.GetClient(ctx, userID, clientID); err != nil {
			return err
		}
		n, err := tx.CountClientLoans(ctx, userID, clientID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Newf(apperr.Conflict, "client has %d loan(s); delete them first", n)
		}
		return tx.DeleteClient(ctx, userID, clientID)
	})
	if err != nil {
		return err
	}

	s.log.WithField("user_id", userID).Infof("Client deleted: %s", clientID)
	return nil
}
