package exception

import "errors"

var (
	ErrMarketUnknownTicker      = errors.New("market: unknown ticker")
	ErrMarketInvalidInstrument  = errors.New("market: invalid instrument definition")
	ErrMarketDuplicateTicker    = errors.New("market: duplicate ticker")
	ErrMarketEmptyUniverse      = errors.New("market: no instruments configured")
	ErrMarketInvalidShock       = errors.New("market: invalid news shock")
	ErrMarketDegenerateInterval = errors.New("market: unsupported candle interval")
)
