package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sevalabs/gramseva-backend/pkg/enums"
)

// WalletTransaction is the append-only movement history of a wallet.
type WalletTransaction struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID     uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	UserID       uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type         enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	Amount       decimal.Decimal             `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceAfter decimal.Decimal             `gorm:"column:balance_after;type:numeric(14,2);not null"`
	ServiceType  *enums.ServiceType          `gorm:"column:service_type;type:service_type"`
	Description  string                      `gorm:"column:description;not null"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
