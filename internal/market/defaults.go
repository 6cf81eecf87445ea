package market

import "github.com/Daboss57/wallstreet-sub000/internal/model/enum"

// DefaultUniverse is the built-in 30-name universe used when the config file
// does not provide instruments.
func DefaultUniverse() []Instrument {
	return []Instrument{
		equity("AAPL", "Apple", 192, 0.015, FactorLoadings{RiskOn: 0.012, Rates: -0.006, Vol: -0.004}),
		equity("MSFT", "Microsoft", 415, 0.014, FactorLoadings{RiskOn: 0.011, Rates: -0.007, Vol: -0.004}),
		equity("NVDA", "NVIDIA", 880, 0.028, FactorLoadings{RiskOn: 0.02, Rates: -0.009, Vol: -0.008}),
		equity("AMZN", "Amazon", 178, 0.018, FactorLoadings{RiskOn: 0.014, Rates: -0.008, Vol: -0.005}),
		equity("GOOG", "Alphabet", 165, 0.016, FactorLoadings{RiskOn: 0.012, Rates: -0.006, Vol: -0.004}),
		equity("META", "Meta Platforms", 495, 0.021, FactorLoadings{RiskOn: 0.016, Rates: -0.007, Vol: -0.006}),
		equity("TSLA", "Tesla", 245, 0.032, FactorLoadings{RiskOn: 0.022, Rates: -0.008, Vol: -0.009, Crypto: 0.004}),
		equity("JPM", "JPMorgan Chase", 198, 0.013, FactorLoadings{RiskOn: 0.009, Rates: 0.008, Vol: -0.004}),
		equity("XOM", "Exxon Mobil", 114, 0.014, FactorLoadings{RiskOn: 0.005, Energy: 0.016, USD: -0.004}),
		equity("JNJ", "Johnson & Johnson", 152, 0.009, FactorLoadings{RiskOn: 0.004, Rates: -0.003, Vol: -0.002}),
		equity("WMT", "Walmart", 68, 0.008, FactorLoadings{RiskOn: 0.003, Rates: -0.002}),
		equity("BA", "Boeing", 185, 0.024, FactorLoadings{RiskOn: 0.016, Rates: -0.004, Vol: -0.007}),
		etf("SPY", "S&P 500 ETF", 520, 0.01, FactorLoadings{RiskOn: 0.01, Rates: -0.004, Vol: -0.004}),
		etf("QQQ", "Nasdaq 100 ETF", 445, 0.013, FactorLoadings{RiskOn: 0.013, Rates: -0.006, Vol: -0.005}),
		etf("IWM", "Russell 2000 ETF", 205, 0.014, FactorLoadings{RiskOn: 0.014, Rates: -0.007, Vol: -0.005}),
		etf("GLD", "Gold ETF", 215, 0.009, FactorLoadings{Metals: 0.014, USD: -0.008, Vol: 0.003}),
		etf("TLT", "20y Treasury ETF", 92, 0.01, FactorLoadings{Rates: -0.016, Vol: 0.004}),
		etf("VXX", "Volatility ETN", 14, 0.035, FactorLoadings{Vol: 0.03, RiskOn: -0.018}),
		crypto("BTC", "Bitcoin", 67000, 0.035, FactorLoadings{Crypto: 0.028, RiskOn: 0.01, USD: -0.006}),
		crypto("ETH", "Ethereum", 3500, 0.042, FactorLoadings{Crypto: 0.032, RiskOn: 0.012, USD: -0.005}),
		crypto("SOL", "Solana", 145, 0.058, FactorLoadings{Crypto: 0.04, RiskOn: 0.015}),
		crypto("DOGE", "Dogecoin", 0.16, 0.075, FactorLoadings{Crypto: 0.045, RiskOn: 0.018}),
		fx("EURUSD", "Euro / US Dollar", 1.085, 0.004, FactorLoadings{USD: -0.01, Rates: 0.003}),
		fx("GBPUSD", "Pound / US Dollar", 1.27, 0.0045, FactorLoadings{USD: -0.009, Rates: 0.003, RiskOn: 0.002}),
		fx("USDJPY", "US Dollar / Yen", 151.5, 0.005, FactorLoadings{USD: 0.011, Rates: 0.006, RiskOn: 0.003}),
		fx("AUDUSD", "Aussie / US Dollar", 0.655, 0.005, FactorLoadings{USD: -0.008, RiskOn: 0.005, Metals: 0.004}),
		commodity("CL", "WTI Crude Oil", 82.5, 0.019, FactorLoadings{Energy: 0.024, USD: -0.006, RiskOn: 0.004}),
		commodity("NG", "Natural Gas", 2.15, 0.034, FactorLoadings{Energy: 0.03, USD: -0.004}),
		commodity("XAU", "Gold Spot", 2320, 0.009, FactorLoadings{Metals: 0.016, USD: -0.009, Vol: 0.004}),
		commodity("XAG", "Silver Spot", 27.4, 0.016, FactorLoadings{Metals: 0.022, USD: -0.008, RiskOn: 0.003}),
	}
}

func equity(ticker, name string, price, vol float64, loadings FactorLoadings) Instrument {
	return Instrument{
		Ticker:      ticker,
		Name:        name,
		Class:       enum.AssetClassEquity,
		BasePrice:   price,
		BaseVol:     vol,
		Drift:       0.00002,
		MeanRevRate: 0.012,
		MinPrice:    price * 0.05,
		MaxPrice:    price * 20,
		Style: Style{
			Loadings:         loadings,
			TrendPersistence: 0.08,
			JumpProb:         0.004,
			JumpScale:        3.5,
			MeanRevMult:      1,
			AnchorFollowRate: 0.02,
			IdioMult:         1,
			SpreadMult:       1,
			VolumeBase:       9000,
			VolumeJitter:     4000,
		},
	}
}

func etf(ticker, name string, price, vol float64, loadings FactorLoadings) Instrument {
	inst := equity(ticker, name, price, vol, loadings)
	inst.Class = enum.AssetClassETF
	inst.Style.JumpProb = 0.002
	inst.Style.JumpScale = 2.5
	inst.Style.IdioMult = 0.6
	inst.Style.SpreadMult = 0.7
	inst.Style.VolumeBase = 22000
	inst.Style.VolumeJitter = 9000
	return inst
}

func crypto(ticker, name string, price, vol float64, loadings FactorLoadings) Instrument {
	return Instrument{
		Ticker:      ticker,
		Name:        name,
		Class:       enum.AssetClassCrypto,
		BasePrice:   price,
		BaseVol:     vol,
		Drift:       0.00005,
		MeanRevRate: 0.006,
		MinPrice:    price * 0.02,
		MaxPrice:    price * 50,
		Style: Style{
			Loadings:         loadings,
			TrendPersistence: 0.14,
			JumpProb:         0.01,
			JumpScale:        4.5,
			MeanRevMult:      0.6,
			AnchorFollowRate: 0.015,
			IdioMult:         1.4,
			SpreadMult:       1.3,
			VolumeBase:       15000,
			VolumeJitter:     8000,
		},
	}
}

func fx(ticker, name string, price, vol float64, loadings FactorLoadings) Instrument {
	return Instrument{
		Ticker:      ticker,
		Name:        name,
		Class:       enum.AssetClassForex,
		BasePrice:   price,
		BaseVol:     vol,
		Drift:       0,
		MeanRevRate: 0.03,
		MinPrice:    price * 0.5,
		MaxPrice:    price * 2,
		Style: Style{
			Loadings:         loadings,
			TrendPersistence: 0.05,
			JumpProb:         0.001,
			JumpScale:        2,
			MeanRevMult:      1.8,
			AnchorFollowRate: 0.03,
			IdioMult:         0.7,
			SpreadMult:       0.5,
			VolumeBase:       40000,
			VolumeJitter:     15000,
		},
	}
}

func commodity(ticker, name string, price, vol float64, loadings FactorLoadings) Instrument {
	return Instrument{
		Ticker:      ticker,
		Name:        name,
		Class:       enum.AssetClassCommodity,
		BasePrice:   price,
		BaseVol:     vol,
		Drift:       0.00001,
		MeanRevRate: 0.015,
		MinPrice:    price * 0.1,
		MaxPrice:    price * 10,
		Style: Style{
			Loadings:         loadings,
			TrendPersistence: 0.1,
			JumpProb:         0.006,
			JumpScale:        3.8,
			MeanRevMult:      1.1,
			AnchorFollowRate: 0.02,
			IdioMult:         1.1,
			SpreadMult:       1.1,
			VolumeBase:       7000,
			VolumeJitter:     3500,
		},
	}
}
