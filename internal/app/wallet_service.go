package app

import (
	"context"

	"quiz-attempt-service/internal/domain"

	"github.com/shopspring/decimal"
)

// WalletService exposes balance reads and admin top-ups.
type WalletService struct {
	store Store
}

func NewWalletService(store Store) *WalletService {
	return &WalletService{store: store}
}

func (s *WalletService) Balance(ctx context.Context, userID string) (domain.Wallet, error) {
	if userID == "" {
		return domain.Wallet{}, domain.ErrInvalidInput
	}
	return s.store.Wallets().Balance(ctx, userID)
}

// Deposit credits a positive amount to the user's wallet, creating it when missing.
func (s *WalletService) Deposit(ctx context.Context, userID string, amount decimal.Decimal, description string) (domain.Transaction, error) {
	if userID == "" || !amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidInput
	}
	if description == "" {
		description = "Wallet deposit"
	}
	return s.store.Wallets().Credit(ctx, userID, amount, domain.TransactionDeposit, description)
}
