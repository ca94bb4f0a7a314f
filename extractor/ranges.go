package extractor

import "scz-inmuebles/models"

// Plausibility ranges. Values outside them are treated as not found.
const (
	MinPriceUSD = 1_000.0
	MaxPriceUSD = 50_000_000.0
	MinPriceBOB = 70_000.0
	MaxPriceBOB = 350_000_000.0

	MinRooms   = 1
	MaxRooms   = 20
	MinBaths   = 1.0
	MaxBaths   = 15.0
	MinGarages = 1
	MaxGarages = 20
	MinArea    = 10.0
	MaxArea    = 100_000.0

	// InferUSDAbove is the magnitude above which a price without a currency
	// marker is assumed to be in dollars.
	InferUSDAbove = 10_000.0
)

// ValidPrice reports whether amount is plausible for the given currency.
func ValidPrice(amount float64, cur models.Currency) bool {
	switch cur {
	case models.USD:
		return amount >= MinPriceUSD && amount <= MaxPriceUSD
	case models.BOB:
		return amount >= MinPriceBOB && amount <= MaxPriceBOB
	}
	return false
}

func ValidRooms(n int) bool { return n >= MinRooms && n <= MaxRooms }
func ValidBaths(v float64) bool { return v >= MinBaths && v <= MaxBaths }
func ValidGarages(n int) bool { return n >= MinGarages && n <= MaxGarages }
func ValidArea(v float64) bool { return v >= MinArea && v <= MaxArea }

// InferCurrency guesses the currency of an unmarked amount from its magnitude.
func InferCurrency(amount float64) models.Currency {
	if amount > InferUSDAbove {
		return models.USD
	}
	return models.BOB
}
