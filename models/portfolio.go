package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is a user's open position in one symbol. A row exists only
// while Shares > 0; selling a position down to zero deletes it.
// No DeletedAt here: holdings are hard-deleted so the unique index
// never collides with a stale row.
type Holding struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	UserID    uint      `gorm:"uniqueIndex:idx_holdings_user_symbol" json:"user_id"`
	Symbol    string    `gorm:"uniqueIndex:idx_holdings_user_symbol" json:"symbol"`
	Shares    int64     `json:"shares"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Transaction is one executed trade or deposit. Rows are append-only:
// nothing in the codebase updates or deletes them.
type Transaction struct {
	gorm.Model
	UserID    uint            `gorm:"index" json:"user_id"`
	Type      string          `json:"type"` // buy/sell/deposit
	Symbol    string          `json:"symbol"`
	Shares    int64           `json:"shares"`
	Value     decimal.Decimal `gorm:"type:numeric(20,2)" json:"value"`
	Timestamp time.Time       `gorm:"index;default:CURRENT_TIMESTAMP" json:"timestamp"`
}
