package utils

import "github.com/shopspring/decimal"

var thousand = decimal.NewFromInt(1000)

// PricePerKg derives the per-kilogram price of a piece weighing gramsPerPiece, rounded to cents.
func PricePerKg(price decimal.Decimal, gramsPerPiece int) decimal.Decimal {
	if gramsPerPiece <= 0 {
		return decimal.Zero
	}
	return price.Mul(thousand).Div(decimal.NewFromInt(int64(gramsPerPiece))).Round(2)
}

// QuantityScale is the number of decimal places stored for stock and recipe quantities.
const QuantityScale = 4

// FitsQuantityScale reports whether d is stored without losing digits.
func FitsQuantityScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(QuantityScale))
}

// RequiredAmount is the stock consumed by producing batchSize pieces at perUnit each.
func RequiredAmount(perUnit decimal.Decimal, batchSize int) decimal.Decimal {
	return perUnit.Mul(decimal.NewFromInt(int64(batchSize)))
}
