package model

import "github.com/shopspring/decimal"

// KoboPerNaira is the number of minor units in one naira.
const KoboPerNaira = 100

// Amount is a currency value in kobo. Fee and payout math stays on integers;
// percentage splits are rounded once per share. Monnify speaks naira with two
// decimals, so conversion happens only at that boundary.
type Amount int64

// AmountFromNaira converts a naira value to kobo, rounding half away from zero.
func AmountFromNaira(naira decimal.Decimal) Amount {
	return Amount(naira.Shift(2).Round(0).IntPart())
}

// Naira returns the amount as a two-decimal naira value.
func (a Amount) Naira() decimal.Decimal {
	return decimal.New(int64(a), -2)
}
