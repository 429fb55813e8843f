package core

import "strconv"

// Amount is a nullable monetary value. Invalid amounts come from blank or
// sentinel cells and are excluded from numeric reductions.
type Amount struct {
	Value float64
	Valid bool
}

// AmountOf returns a valid Amount holding v.
func AmountOf(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

// Or returns the amount's value, or def when the amount is null.
func (a Amount) Or(def float64) float64 {
	if !a.Valid {
		return def
	}
	return a.Value
}

// MarshalJSON encodes null amounts as JSON null so the presentation layer can
// distinguish "no value" from zero.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, a.Value, 'f', -1, 64), nil
}
