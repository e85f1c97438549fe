package cli

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is the single display locale amounts are grouped for.
const DefaultLocale = "id-ID"

// AmountFormatter renders stored amounts as whole currency units grouped for
// a locale, e.g. 12345.5 becomes "12.346" in id-ID.
type AmountFormatter struct {
	printer *message.Printer
	symbol  string
}

// NewAmountFormatter builds a formatter for a BCP 47 locale. symbol, if not
// empty, is prefixed to every amount.
func NewAmountFormatter(locale, symbol string) (*AmountFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid display locale %q: %w", locale, err)
	}
	return &AmountFormatter{
		printer: message.NewPrinter(tag),
		symbol:  symbol,
	}, nil
}

// Format rounds half to even to a whole unit and groups the digits.
func (f *AmountFormatter) Format(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	whole := decimal.NewFromFloat(amount).RoundBank(0)

	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}
	// whole came from a float64, so converting back is exact. Formatting the
	// float keeps amounts past the int64 range intact.
	digits := f.printer.Sprintf("%v", number.Decimal(whole.InexactFloat64(), number.MaxFractionDigits(0)))
	return sign + f.symbol + digits
}

var defaultFormatter = func() *AmountFormatter {
	f, err := NewAmountFormatter(DefaultLocale, "")
	if err != nil {
		panic(err)
	}
	return f
}()

// FormatAmount formats an amount for the default locale without a symbol.
func FormatAmount(amount float64) string {
	return defaultFormatter.Format(amount)
}
