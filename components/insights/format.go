package insights

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

func printerFor(locale string) *message.Printer {
	tag := language.English
	if locale = strings.TrimSpace(locale); locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return message.NewPrinter(tag)
}

// FormatCount renders an integer with the locale's thousands separators.
func FormatCount(locale string, n int64) string {
	return printerFor(locale).Sprintf("%d", n)
}

// FormatDecimal renders a float with thousands separators, dropping the
// fraction when the value is whole.
func FormatDecimal(locale string, v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return FormatCount(locale, int64(v))
	}
	return printerFor(locale).Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// FormatNumber renders a float the way it was supplied, without grouping.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPercent appends a percent sign to the supplied value.
func FormatPercent(v float64) string {
	return FormatNumber(v) + "%"
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case Count:
		return strconv.FormatInt(int64(v), 10)
	case float64:
		return FormatNumber(v)
	case float32:
		return FormatNumber(float64(v))
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Truncate shortens s to at most limit runes, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:limit]), func(r rune) bool { return r == ' ' }) + "…"
}
