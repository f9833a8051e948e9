package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is a borrower recorded by a lender.
type Client struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"-"`
	Name               string    `json:"name"`
	PhoneNumber        string    `json:"phone_number"`
	Address            string    `json:"address"`
	CollateralImageURL *string   `json:"collateral_image_url"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewClient is the input of client creation.
type NewClient struct {
	Name               string  `json:"name"`
	PhoneNumber        string  `json:"phone_number"`
	Address            string  `json:"address"`
	CollateralImageURL *string `json:"collateral_image_url"`
}
