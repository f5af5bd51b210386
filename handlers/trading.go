package handlers

import (
	"errors"
	"net/http"

	"paper-trader/ledger"
	"paper-trader/quotes"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler serves the trading routes. All portfolio mutations go
// through the ledger; no route touches the database directly.
type Handler struct {
	Ledger *ledger.Ledger
	Quotes quotes.Provider
}

func New(l *ledger.Ledger, q quotes.Provider) *Handler {
	return &Handler{Ledger: l, Quotes: q}
}

type TradeInput struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares int64  `json:"shares" binding:"required,min=1"`
}

type DepositInput struct {
	Amount string `json:"amount" binding:"required"`
}

func (h *Handler) Buy(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var input TradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Ledger.Buy(c.Request.Context(), userID, input.Symbol, input.Shares); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Purchase successful"})
}

func (h *Handler) Sell(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var input TradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Ledger.Sell(c.Request.Context(), userID, input.Symbol, input.Shares); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sale successful"})
}

func (h *Handler) Deposit(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var input DepositInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ledger.ErrInvalidAmount.Error()})
		return
	}

	if err := h.Ledger.Deposit(c.Request.Context(), userID, amount); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deposit successful"})
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	portfolio, err := h.Ledger.GetPortfolio(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

func (h *Handler) GetHistory(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	history, err := h.Ledger.GetHistory(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, history)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientShares),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrQuoteUnavailable),
		errors.Is(err, ledger.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
