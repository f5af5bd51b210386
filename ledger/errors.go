package ledger

import "errors"

var (
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidShares      = errors.New("invalid share count")
	ErrQuoteUnavailable   = errors.New("quote unavailable")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
