package handlers

import (
	"errors"
	"net/http"

	"paper-trader/quotes"

	"github.com/gin-gonic/gin"
)

// GetQuote looks up the current quote for a symbol. Served from the
// cache when fresh.
func (h *Handler) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	quote, err := h.Quotes.Lookup(c.Request.Context(), symbol)
	if err != nil {
		if errors.Is(err, quotes.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch stock data"})
		return
	}

	c.JSON(http.StatusOK, quote)
}
