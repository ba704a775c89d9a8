package repository

import (
	"context"

	"orbix/internal/domain"
)

// WalletRepository owns balance movements and the transaction log.
// Each movement and its ledger entry commit together or not at all.
type WalletRepository interface {
	// DebitRider subtracts amount from the rider's balance if the
	// balance covers it, appending a debit entry. Returns false when
	// the balance is insufficient; the balance is then untouched.
	DebitRider(ctx context.Context, txn *domain.Transaction) (bool, error)

	// CreditRider adds amount to the rider's balance, appending a
	// credit entry.
	CreditRider(ctx context.Context, txn *domain.Transaction) error

	// AppendEntry records a ledger entry whose balance movement is
	// handled elsewhere, such as driver earnings applied with the
	// counter update.
	AppendEntry(ctx context.Context, txn *domain.Transaction) error

	// ListByOwner retrieves ledger entries, newest first.
	ListByOwner(ctx context.Context, ownerID string, role domain.OwnerRole, limit int) ([]*domain.Transaction, error)
}
