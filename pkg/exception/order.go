package exception

import "errors"

var (
	ErrOrderInvalidRequest   = errors.New("order: invalid request")
	ErrOrderUnknownTicker    = errors.New("order: unknown ticker")
	ErrOrderUnsupportedType  = errors.New("order: unsupported type")
	ErrOrderUnsupportedSide  = errors.New("order: unsupported side")
	ErrOrderNotOpen          = errors.New("order: not open")
	ErrOrderNotFound         = errors.New("order: not found")
	ErrOrderInvalidQty       = errors.New("order: qty must be > 0")
	ErrOrderMissingLimit     = errors.New("order: missing limit price")
	ErrOrderMissingStop      = errors.New("order: missing stop price")
	ErrOrderMissingTrailPct  = errors.New("order: missing trail percent")
	ErrOrderInvalidStatusSeq = errors.New("order: invalid status transition")
)
