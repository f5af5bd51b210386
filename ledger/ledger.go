// Package ledger implements the portfolio core: cash, holdings and the
// append-only trade log for each user. All operations take an explicit
// user id and run as one database transaction, so a failure at any
// step leaves no partial state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paper-trader/models"
	"paper-trader/quotes"
)

// currencyPlaces is the precision every monetary amount is rounded to,
// half-up, at the point cost/proceeds/market value is computed.
const currencyPlaces = 2

type Ledger struct {
	db     *gorm.DB
	quotes quotes.Provider
}

func New(db *gorm.DB, provider quotes.Provider) *Ledger {
	return &Ledger{db: db, quotes: provider}
}

// PortfolioEntry is one holding annotated with current market data.
// PriceUnavailable marks entries whose quote could not be resolved;
// their MarketValue is zero and excluded from the portfolio total.
type PortfolioEntry struct {
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Shares           int64           `json:"shares"`
	Price            decimal.Decimal `json:"price"`
	MarketValue      decimal.Decimal `json:"market_value"`
	PriceUnavailable bool            `json:"price_unavailable,omitempty"`
}

type Portfolio struct {
	Cash     decimal.Decimal  `json:"cash"`
	Holdings []PortfolioEntry `json:"holdings"`
	Total    decimal.Decimal  `json:"total"`
}

// HistoryEntry is one transaction row annotated with the symbol's
// current display name. Name falls back to the raw symbol when the
// lookup fails.
type HistoryEntry struct {
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Shares    int64           `json:"shares"`
	Value     decimal.Decimal `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// Buy purchases shares at the current quoted price. The quote is
// resolved once, before the database transaction, and its canonical
// symbol keys the holding so case and alias variants collapse into one
// position.
func (l *Ledger) Buy(ctx context.Context, userID uint, symbol string, shares int64) error {
	if shares <= 0 {
		return ErrInvalidShares
	}

	quote, err := l.quotes.LookupFresh(ctx, symbol)
	if err != nil {
		return quoteErr(err)
	}

	cost := quote.Price.Mul(decimal.NewFromInt(shares)).Round(currencyPlaces)

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return storeErr(err)
		}
		if user.Cash.LessThan(cost) {
			return ErrInsufficientFunds
		}

		// Guarded relative update: the cash >= cost predicate re-checks
		// funds at write time, so a concurrent buy cannot overdraw.
		res := tx.Model(&models.User{}).
			Where("id = ? AND cash >= ?", userID, cost).
			Update("cash", gorm.Expr("cash - ?", cost))
		if res.Error != nil {
			return storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds
		}

		holding := models.Holding{UserID: userID, Symbol: quote.Symbol, Shares: shares}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "symbol"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"shares": gorm.Expr("shares + excluded.shares"),
			}),
		}).Create(&holding).Error; err != nil {
			return storeErr(err)
		}

		trade := models.Transaction{
			UserID:    userID,
			Type:      "buy",
			Symbol:    quote.Symbol,
			Shares:    shares,
			Value:     cost,
			Timestamp: time.Now(),
		}
		return storeErr(tx.Create(&trade).Error)
	})
}

// Sell liquidates shares at the current quoted price. The position is
// checked before the quote lookup so a short request is rejected
// without touching the network; the guarded decrement inside the
// transaction re-checks it at write time.
func (l *Ledger) Sell(ctx context.Context, userID uint, symbol string, shares int64) error {
	if shares <= 0 {
		return ErrInvalidShares
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var held models.Holding
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		First(&held).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientShares
	}
	if err != nil {
		return storeErr(err)
	}
	if held.Shares < shares {
		return ErrInsufficientShares
	}

	quote, err := l.quotes.LookupFresh(ctx, symbol)
	if err != nil {
		return quoteErr(err)
	}

	proceeds := quote.Price.Mul(decimal.NewFromInt(shares)).Round(currencyPlaces)

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Holding{}).
			Where("user_id = ? AND symbol = ? AND shares >= ?", userID, symbol, shares).
			Update("shares", gorm.Expr("shares - ?", shares))
		if res.Error != nil {
			return storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientShares
		}

		// A position sold down to zero is removed, not stored as zero.
		if err := tx.
			Where("user_id = ? AND symbol = ? AND shares = 0", userID, symbol).
			Delete(&models.Holding{}).Error; err != nil {
			return storeErr(err)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("cash", gorm.Expr("cash + ?", proceeds)).Error; err != nil {
			return storeErr(err)
		}

		trade := models.Transaction{
			UserID:    userID,
			Type:      "sell",
			Symbol:    symbol,
			Shares:    shares,
			Value:     proceeds,
			Timestamp: time.Now(),
		}
		return storeErr(tx.Create(&trade).Error)
	})
}

// Deposit credits cash. Deposits are recorded in the transaction log
// with an empty symbol so the cash history is auditable.
func (l *Ledger) Deposit(ctx context.Context, userID uint, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	amount = amount.Round(currencyPlaces)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("cash", gorm.Expr("cash + ?", amount))
		if res.Error != nil {
			return storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return storeErr(gorm.ErrRecordNotFound)
		}

		deposit := models.Transaction{
			UserID:    userID,
			Type:      "deposit",
			Value:     amount,
			Timestamp: time.Now(),
		}
		return storeErr(tx.Create(&deposit).Error)
	})
}

// GetPortfolio returns the user's cash plus every holding valued at
// its current price. A failed quote flags the entry instead of failing
// the whole view.
func (l *Ledger) GetPortfolio(ctx context.Context, userID uint) (*Portfolio, error) {
	var user models.User
	if err := l.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, storeErr(err)
	}

	var holdings []models.Holding
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("symbol ASC").
		Find(&holdings).Error; err != nil {
		return nil, storeErr(err)
	}

	portfolio := &Portfolio{
		Cash:     user.Cash,
		Holdings: make([]PortfolioEntry, 0, len(holdings)),
		Total:    user.Cash,
	}

	for _, h := range holdings {
		entry := PortfolioEntry{Symbol: h.Symbol, Name: h.Symbol, Shares: h.Shares}

		quote, err := l.quotes.Lookup(ctx, h.Symbol)
		if err != nil {
			entry.PriceUnavailable = true
		} else {
			entry.Name = quote.Name
			entry.Price = quote.Price
			entry.MarketValue = quote.Price.Mul(decimal.NewFromInt(h.Shares)).Round(currencyPlaces)
			portfolio.Total = portfolio.Total.Add(entry.MarketValue)
		}

		portfolio.Holdings = append(portfolio.Holdings, entry)
	}

	return portfolio, nil
}

// GetHistory returns the user's transaction log oldest-first.
func (l *Ledger) GetHistory(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	var rows []models.Transaction
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr(err)
	}

	history := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := HistoryEntry{
			Type:      row.Type,
			Symbol:    row.Symbol,
			Name:      row.Symbol,
			Shares:    row.Shares,
			Value:     row.Value,
			Timestamp: row.Timestamp,
		}
		if row.Symbol != "" {
			if quote, err := l.quotes.Lookup(ctx, row.Symbol); err == nil {
				entry.Name = quote.Name
			}
		}
		history = append(history, entry)
	}

	return history, nil
}

func quoteErr(err error) error {
	if errors.Is(err, quotes.ErrNotFound) {
		return ErrUnknownSymbol
	}
	return fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
