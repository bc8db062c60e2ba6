package httpapi

import (
	"github.com/google/uuid"
)

type payRequest struct {
	From   uuid.UUID `json:"from"`
	To     uuid.UUID `json:"to"`
	Amount string    `json:"amount"`
}

// moneyRequest is the body for the admin set/give/take money endpoints.
// Actor is who initiated the mutation, recorded in the transaction log.
type moneyRequest struct {
	Actor  string `json:"actor,omitempty"`
	Amount string `json:"amount"`
}

// pointsRequest is the body for the admin faction point endpoints.
type pointsRequest struct {
	Actor  string `json:"actor,omitempty"`
	Points int64  `json:"points"`
}

type balanceResponse struct {
	PlayerID uuid.UUID `json:"player_id"`
	Balance  string    `json:"balance"`
}

type topBalancesResponse struct {
	Items []balanceResponse `json:"items"`
}

type factionPointsResponse struct {
	Faction string `json:"faction"`
	Points  int64  `json:"points"`
}

type topFactionsResponse struct {
	Items []factionPointsResponse `json:"items"`
}

type payResponse struct {
	From    uuid.UUID `json:"from"`
	To      uuid.UUID `json:"to"`
	Amount  string    `json:"amount"`
	Balance string    `json:"balance"`
}

type transactionResponse struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type historyResponse struct {
	Target     string                `json:"target"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"total_pages"`
	Items      []transactionResponse `json:"items"`
}
