package enum

// OrderType is the trigger family of an order.
type OrderType string

const (
	OrderTypeMarket       OrderType = "market"
	OrderTypeLimit        OrderType = "limit"
	OrderTypeStop         OrderType = "stop"
	OrderTypeStopLoss     OrderType = "stop_loss"
	OrderTypeStopLimit    OrderType = "stop_limit"
	OrderTypeTakeProfit   OrderType = "take_profit"
	OrderTypeTrailingStop OrderType = "trailing_stop"
)

func (t OrderType) IsAvailable() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLoss,
		OrderTypeStopLimit, OrderTypeTakeProfit, OrderTypeTrailingStop:
		return true
	default:
		return false
	}
}

// RequiresLimitPrice reports whether the type carries a limit price.
func (t OrderType) RequiresLimitPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit
}

// RequiresStopPrice reports whether the type carries a stop price.
func (t OrderType) RequiresStopPrice() bool {
	switch t {
	case OrderTypeStop, OrderTypeStopLoss, OrderTypeStopLimit, OrderTypeTakeProfit:
		return true
	default:
		return false
	}
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

func (s OrderSide) IsAvailable() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderStatus is the lifecycle state of an order. Transitions are monotonic:
// open -> partial* -> filled, or open/partial -> cancelled.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) IsAvailable() bool {
	switch s {
	case OrderStatusOpen, OrderStatusPartial, OrderStatusFilled, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// CanTransition reports whether moving to the given status respects the
// monotonic lifecycle. Saving an unchanged status is always allowed.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if !to.IsAvailable() {
		return false
	}
	if s == to {
		return true
	}
	switch s {
	case OrderStatusOpen:
		return true
	case OrderStatusPartial:
		return to == OrderStatusFilled || to == OrderStatusCancelled
	default:
		return false
	}
}
