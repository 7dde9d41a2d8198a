package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrTransport covers network failures, timeouts and non-2xx answers from the provider.
	ErrTransport = errors.New("provider transport error")
	// ErrIncompleteQuoteData means the quote lacked price or a usable previous close.
	ErrIncompleteQuoteData = errors.New("incomplete quote data")
	// ErrNoUsableHistoricalData means every lookback window came back empty or failed.
	ErrNoUsableHistoricalData = errors.New("no usable historical data")
	// ErrNoSymbolResolved means no probe candidate resolved to a priced quote.
	ErrNoSymbolResolved = errors.New("no symbol resolved")
	// ErrStore wraps a failed transactional write.
	ErrStore = errors.New("store error")
)
