package domain

import (
	"context"
	"time"
)

// TradingAccount is an account on the external trading platform.
type TradingAccount struct {
	ID        string
	UserID    string
	Login     string
	Password  string
	CreatedAt time.Time
}

type TradingAccountRepository interface {
	GetAccountsByUserIDs(ctx context.Context, userIDs []string) ([]*TradingAccount, error)
	GetAccountByID(ctx context.Context, accountID string) (*TradingAccount, error)
}
