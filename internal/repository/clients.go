package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/models"
)

const clientColumns = `id, user_id, name, phone_number, address, collateral_image_url, created_at`

// CreateClient inserts a client
func (r *Repository) CreateClient(ctx context.Context, client *models.Client) error {
	_, err := r.exec(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		client.ID, client.UserID, client.Name, client.PhoneNumber, client.Address, client.CollateralImageURL, timeArg(client.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// GetClient retrieves a client owned by the user
func (r *Repository) GetClient(ctx context.Context, userID, id uuid.UUID) (*models.Client, error) {
	row := r.queryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ? AND user_id = ?`, id, userID)
	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "client not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// ListClients returns the user's clients, newest first
func (r *Repository) ListClients(ctx context.Context, userID uuid.UUID) ([]models.Client, error) {
	rows, err := r.query(ctx, `SELECT `+clientColumns+` FROM clients WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return clients, nil
}

// CountClientLoans counts loans, in any status, that reference the client
func (r *Repository) CountClientLoans(ctx context.Context, userID, clientID uuid.UUID) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM loans WHERE client_id = ? AND user_id = ?`, clientID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count client loans: %w", err)
	}
	return n, nil
}

// DeleteClient removes a client. Loans still referencing it block the delete.
func (r *Repository) DeleteClient(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.exec(ctx, `DELETE FROM clients WHERE id = ? AND user_id = ?`, id, userID)
	if isForeignKeyViolation(err) {
		return apperr.Wrap(apperr.Conflict, err, "client still has loans")
	}
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "client not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	var (
		client  models.Client
		image   sql.NullString
		created nullTime
	)
	if err := row.Scan(&client.ID, &client.UserID, &client.Name, &client.PhoneNumber, &client.Address, &image, &created); err != nil {
		return nil, err
	}
	client.CollateralImageURL = nullString(image)
	client.CreatedAt = created.Time
	return &client, nil
}
