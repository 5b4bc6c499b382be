package executor

import "github.com/shopspring/decimal"

// roundToTick rounds price to the nearest multiple of tick and keeps it
// inside [tick, 1-tick].
func roundToTick(price, tick float64) float64 {
	t := decimal.NewFromFloat(tick)
	p := decimal.NewFromFloat(price).Div(t).Round(0).Mul(t)

	upper := decimal.NewFromInt(1).Sub(t)
	if p.LessThan(t) {
		p = t
	} else if p.GreaterThan(upper) {
		p = upper
	}
	return p.InexactFloat64()
}

// sharesFor returns sizeUSD/price truncated to two decimals.
func sharesFor(sizeUSD, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return decimal.NewFromFloat(sizeUSD).Div(decimal.NewFromFloat(price)).Truncate(2).InexactFloat64()
}
