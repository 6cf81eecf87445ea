package enum

// AssetClass groups instruments sharing microstructure defaults.
type AssetClass string

const (
	AssetClassEquity    AssetClass = "equity"
	AssetClassETF       AssetClass = "etf"
	AssetClassCrypto    AssetClass = "crypto"
	AssetClassForex     AssetClass = "forex"
	AssetClassCommodity AssetClass = "commodity"
)

func (c AssetClass) IsAvailable() bool {
	switch c {
	case AssetClassEquity, AssetClassETF, AssetClassCrypto, AssetClassForex, AssetClassCommodity:
		return true
	default:
		return false
	}
}
