package model

import "time"

// Account is an entry of the user's account directory.
type Account struct {
	AccountID   string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	AccountType string    `json:"account_type"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// Category is a user defined transaction category. Its type restricts which transactions it can hold.
type Category struct {
	CategoryID   string          `json:"id"`
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	CategoryType TransactionType `json:"category_type"`
	ParentID     *string         `json:"parent_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type SuggestionOrigin string

const (
	OriginLearned SuggestionOrigin = "learned"
	OriginName    SuggestionOrigin = "name"
)

// CategorySuggestion is computed on demand and never persisted.
type CategorySuggestion struct {
	TransactionID string           `json:"transaction_id"`
	CategoryID    string           `json:"category_id"`
	CategoryName  string           `json:"category_name"`
	Score         int              `json:"score"`
	Origin        SuggestionOrigin `json:"origin"`
}
