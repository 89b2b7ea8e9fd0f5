package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// DecimalPlaces is the number of fractional digits a Decimal keeps.
const DecimalPlaces = 4

const decimalScale = 10_000

// MaxDecimalWhole is the largest whole value a Decimal can hold.
const MaxDecimalWhole = math.MaxInt64 / decimalScale

// Decimal is an exact fixed-point payload number with DecimalPlaces
// fractional digits. It exists so quantities such as 7.5 hours or 12.50 in
// spend can be stored and hashed without floats.
//
// A whole Decimal is canonically the same JSON number as the IRInt of the
// same value; use IR to get the normalized payload value.
type Decimal struct {
	units int64
}

func (Decimal) irValue() {}

// NewDecimal returns the whole value n.
func NewDecimal(n int64) (Decimal, error) {
	if n > MaxDecimalWhole || n < -MaxDecimalWhole {
		return Decimal{}, fmt.Errorf("number out of decimal range: %d", n)
	}
	return Decimal{units: n * decimalScale}, nil
}

// DecimalOf returns the whole value n and panics when n is out of range.
// It is meant for constants.
func DecimalOf(n int64) Decimal {
	d, err := NewDecimal(n)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDecimal parses a JSON number or plain decimal string exactly.
// Values with more than DecimalPlaces fractional digits are rejected rather
// than rounded.
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, "0123456789.eE+-") != "" {
		return Decimal{}, fmt.Errorf("invalid decimal %q", s)
	}
	if len(s) > maxDecimalText {
		return Decimal{}, fmt.Errorf("decimal %q out of range", s)
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, err := strconv.Atoi(s[i+1:])
		if err != nil || exp > 32 || exp < -32 {
			return Decimal{}, fmt.Errorf("decimal %q out of range", s)
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Decimal{}, fmt.Errorf("invalid decimal %q", s)
	}
	r.Mul(r, big.NewRat(decimalScale, 1))
	if !r.IsInt() {
		return Decimal{}, fmt.Errorf("decimal %q has more than %d fractional digits", s, DecimalPlaces)
	}
	n := r.Num()
	if !n.IsInt64() || n.Int64() > maxUnits || n.Int64() < -maxUnits {
		return Decimal{}, fmt.Errorf("decimal %q out of range", s)
	}
	return Decimal{units: n.Int64()}, nil
}

// MustDecimal is ParseDecimal for constants.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsWhole reports whether d has no fractional part.
func (d Decimal) IsWhole() bool { return d.units%decimalScale == 0 }

// Sign returns -1, 0 or +1.
func (d Decimal) Sign() int {
	switch {
	case d.units < 0:
		return -1
	case d.units > 0:
		return 1
	}
	return 0
}

// Cmp compares d and o and returns -1, 0 or +1.
func (d Decimal) Cmp(o Decimal) int {
	switch {
	case d.units < o.units:
		return -1
	case d.units > o.units:
		return 1
	}
	return 0
}

// Add returns d+o, saturating at the decimal range.
func (d Decimal) Add(o Decimal) Decimal {
	return Decimal{units: clampUnits(d.units, o.units)}
}

// Sub returns d-o, saturating at the decimal range.
func (d Decimal) Sub(o Decimal) Decimal {
	return Decimal{units: clampUnits(d.units, -o.units)}
}

const (
	maxUnits       = MaxDecimalWhole * decimalScale
	maxDecimalText = 64
)

func clampUnits(a, b int64) int64 {
	switch {
	case b > 0 && a > maxUnits-b:
		return maxUnits
	case b < 0 && a < -maxUnits-b:
		return -maxUnits
	}
	return a + b
}

// Float64 returns the nearest float. Use it for ratios only, never for
// stored values.
func (d Decimal) Float64() float64 {
	return float64(d.units) / decimalScale
}

// String renders d as its shortest exact decimal form, e.g. "7.5" or "1000".
func (d Decimal) String() string {
	u := d.units
	sign := ""
	if u < 0 {
		sign = "-"
		u = -u
	}
	whole, frac := u/decimalScale, u%decimalScale
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	digits := strings.TrimRight(fmt.Sprintf("%0*d", DecimalPlaces, frac), "0")
	return sign + strconv.FormatInt(whole, 10) + "." + digits
}

// IR returns d as a payload value: IRInt when whole, d otherwise.
func (d Decimal) IR() IRValue {
	if d.IsWhole() {
		return IRInt(d.units / decimalScale)
	}
	return d
}

// MarshalJSON writes d as a JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	v, err := ParseDecimal(text)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// DecimalValue reads v as a Decimal. IRInt and Decimal are accepted.
func DecimalValue(v IRValue) (Decimal, error) {
	switch n := v.(type) {
	case Decimal:
		return n, nil
	case IRInt:
		return NewDecimal(int64(n))
	default:
		return Decimal{}, fmt.Errorf("want number, got %T", v)
	}
}
