package tower

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Scale maps dollar amounts onto terminal rows against a fixed reference maximum.
type Scale struct {
	ReferenceMax float64
	MaxHeight    int
	MinHeight    int
}

// Height returns max(MinHeight, round(amount/ReferenceMax*MaxHeight)) for positive amounts, else 0.
func (s Scale) Height(amount float64) int {
	if amount <= 0 || s.ReferenceMax <= 0 {
		return 0
	}
	h := int(math.Round(amount / s.ReferenceMax * float64(s.MaxHeight)))
	if h < s.MinHeight {
		return s.MinHeight
	}
	return h
}

// Clamp floors a displayed total at zero.
func Clamp(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

var printer = message.NewPrinter(language.English)

// FormatDollars renders whole dollars with thousands separators, e.g. $50,000.
func FormatDollars(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return printer.Sprintf("-$%d", -n)
	}
	return printer.Sprintf("$%d", n)
}
