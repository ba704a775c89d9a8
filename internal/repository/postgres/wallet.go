package postgres

import (
	"context"
	"database/sql"

	"orbix/internal/domain"
	"orbix/internal/repository"
)

// WalletRepository is a PostgreSQL implementation of repository.WalletRepository.
//
// Balance movements and their ledger entries commit in one transaction.
// The debit guard is part of the UPDATE itself, so a balance can never
// go below zero no matter how many debits race.
type WalletRepository struct {
	db *sql.DB
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// DebitRider subtracts the amount from the rider's balance if the
// balance covers it, appending a debit entry. Returns false when the
// balance is insufficient; nothing is written in that case.
func (r *WalletRepository) DebitRider(ctx context.Context, txn *domain.Transaction) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	query := `
		UPDATE riders
		SET wallet_balance = wallet_balance - $1
		WHERE id = $2 AND wallet_balance >= $1
	`
	result, err := tx.ExecContext(ctx, query, txn.Amount, txn.OwnerID)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rowsAffected == 0 {
		return false, nil
	}

	if err := appendTransaction(ctx, tx, txn); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// CreditRider adds the amount to the rider's balance, appending a
// credit entry.
func (r *WalletRepository) CreditRider(ctx context.Context, txn *domain.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `UPDATE riders SET wallet_balance = wallet_balance + $1 WHERE id = $2`
	result, err := tx.ExecContext(ctx, query, txn.Amount, txn.OwnerID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	if err := appendTransaction(ctx, tx, txn); err != nil {
		return err
	}

	return tx.Commit()
}

// AppendEntry records a ledger entry without moving a balance.
func (r *WalletRepository) AppendEntry(ctx context.Context, txn *domain.Transaction) error {
	return appendTransaction(ctx, r.db, txn)
}

// ListByOwner retrieves ledger entries, newest first.
func (r *WalletRepository) ListByOwner(ctx context.Context, ownerID string, role domain.OwnerRole, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, owner_id, owner_role, ride_id, type, amount, description, external_ref, created_at
		FROM wallet_transactions
		WHERE owner_id = $1 AND owner_role = $2
		ORDER BY created_at DESC LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, role, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		var rideID, externalRef sql.NullString
		if err := rows.Scan(
			&txn.ID,
			&txn.OwnerID,
			&txn.OwnerRole,
			&rideID,
			&txn.Type,
			&txn.Amount,
			&txn.Description,
			&externalRef,
			&txn.CreatedAt,
		); err != nil {
			return nil, err
		}
		if rideID.Valid {
			txn.RideID = rideID.String
		}
		if externalRef.Valid {
			txn.ExternalRef = externalRef.String
		}
		txns = append(txns, &txn)
	}
	return txns, rows.Err()
}

func appendTransaction(ctx context.Context, q Querier, txn *domain.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (id, owner_id, owner_role, ride_id, type, amount, description, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var rideID sql.NullString
	if txn.RideID != "" {
		rideID = sql.NullString{String: txn.RideID, Valid: true}
	}
	var externalRef sql.NullString
	if txn.ExternalRef != "" {
		externalRef = sql.NullString{String: txn.ExternalRef, Valid: true}
	}

	_, err := q.ExecContext(ctx, query,
		txn.ID,
		txn.OwnerID,
		txn.OwnerRole,
		rideID,
		txn.Type,
		txn.Amount,
		txn.Description,
		externalRef,
		txn.CreatedAt,
	)
	return err
}

// Ensure WalletRepository implements repository.WalletRepository.
var _ repository.WalletRepository = (*WalletRepository)(nil)
