package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sevalabs/gramseva-backend/pkg/db/models"
	"github.com/sevalabs/gramseva-backend/pkg/enums"
	pkgerrors "github.com/sevalabs/gramseva-backend/pkg/errors"
	"github.com/sevalabs/gramseva-backend/pkg/pagination"
)

// MovementInput describes a single wallet credit or debit.
type MovementInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	ServiceType *enums.ServiceType
	Description string
}

// Service moves money in and out of stakeholder wallets. Every movement runs
// in its own transaction with the wallet row locked, and appends an immutable
// transaction record carrying the balance after the movement.
type Service interface {
	Credit(ctx context.Context, input MovementInput) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input MovementInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tx   txRunner
	repo Repository
}

// ServiceParams bundles the wallet service dependencies.
type ServiceParams struct {
	TxRunner txRunner
	Repo     Repository
}

// NewService constructs the wallet ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("wallet repository is required")
	}
	return &service{tx: params.TxRunner, repo: params.Repo}, nil
}

func (s *service) Credit(ctx context.Context, input MovementInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.move(ctx, s.repo.WithTx(tx), enums.WalletTransactionCredit, input)
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CreditTx applies a credit inside a caller-owned transaction. Used by the
// commission ledger, which posts entries and credits in one unit of work.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.WalletTransaction, error) {
	return s.move(ctx, s.repo.WithTx(tx), enums.WalletTransactionCredit, input)
}

func (s *service) Debit(ctx context.Context, input MovementInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.move(ctx, s.repo.WithTx(tx), enums.WalletTransactionDebit, input)
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	return wallet.Balance, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, bool, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	var before *uuid.UUID
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		if cursor != nil {
			before = &cursor.ID
		}
	}

	rows, err := s.repo.ListTransactions(ctx, userID, pagination.LimitWithBuffer(limit), before)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet transactions")
	}

	page, hasMore := pagination.TrimPage(rows, limit)
	return page, hasMore, nil
}

func (s *service) move(ctx context.Context, repo Repository, movement enums.WalletTransactionType, input MovementInput) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}

	wallet, err := repo.GetOrCreateForUpdate(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock wallet")
	}

	var balanceAfter decimal.Decimal
	switch movement {
	case enums.WalletTransactionCredit:
		balanceAfter = wallet.Balance.Add(input.Amount)
	case enums.WalletTransactionDebit:
		balanceAfter = wallet.Balance.Sub(input.Amount)
		if balanceAfter.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet movement type")
	}

	if err := repo.UpdateBalance(ctx, wallet.ID, balanceAfter); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update wallet balance")
	}

	txn := &models.WalletTransaction{
		WalletID:     wallet.ID,
		UserID:       input.UserID,
		Type:         movement,
		Amount:       input.Amount,
		BalanceAfter: balanceAfter,
		ServiceType:  input.ServiceType,
		Description:  description,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet transaction")
	}
	return txn, nil
}
