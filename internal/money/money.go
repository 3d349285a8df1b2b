package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
)

// maxAmount keeps cents well inside int64.
var maxAmount = decimal.New(9, 16)

// Cents is an exact amount in minor units.
type Cents int64

// Parse turns a user-entered or backend decimal string ("12.5", "1,234.50")
// into cents. More than two fractional digits are rounded half away from zero.
// Only plain decimal notation is accepted; exponent and hex forms are not.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if !plainDecimal(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// FromDecimal rounds d to cents.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	if d.Abs().GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	return Cents(d.Round(2).Shift(2).IntPart()), nil
}

// plainDecimal matches [+-]digits[.digits] with at least one digit.
func plainDecimal(s string) bool {
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	digits, dot := 0, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// Decimal returns the exact decimal value.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 is for charts only.
func (c Cents) Float64() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

// String formats without float: "-123.45".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Format adds thousands separators: "1,234.50".
func (c Cents) Format() string {
	s := c.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// MarshalJSON emits a JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts numbers and decimal strings; null decodes to zero.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*c = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, s)
		}
		s = unq
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Percent returns part/whole*100, or 0 when whole is not positive.
func Percent(part, whole Cents) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
