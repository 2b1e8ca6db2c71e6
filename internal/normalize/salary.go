package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Multipliers turning a pay period into an annual amount.
var periodMultipliers = map[string]float64{
	"hour": 2080, "hourly": 2080, "hr": 2080, "h": 2080,
	"day": 260, "daily": 260,
	"week": 52, "weekly": 52, "wk": 52,
	"month": 12, "monthly": 12, "mo": 12,
	"year": 1, "yearly": 1, "annual": 1, "annually": 1, "yr": 1, "annum": 1,
}

var (
	amountPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(k|m)?\b`)
	periodPattern = regexp.MustCompile(`(?i)(?:/|\bper\s+|\ban\s+|\ba\s+)\s*(hour|hr|h|day|week|wk|month|mo|year|yr|annum)\b|\b(hourly|daily|weekly|monthly|yearly|annually|annual)\b`)
)

// AnnualRange coerces raw salary data into an annual integer range. Explicit
// bounds win over free text; unknown or non-positive values yield nil, and an
// inverted range is swapped.
func AnnualRange(rawMin, rawMax any, text, period string) (*int, *int) {
	if period == "" {
		period = periodFromText(text)
	}
	multiplier := periodMultiplier(period)

	min, minOK := parseAmount(rawMin)
	max, maxOK := parseAmount(rawMax)
	if !minOK && !maxOK && text != "" {
		min, minOK, max, maxOK = parseRangeText(text)
	}

	var lo, hi *int
	if minOK && min > 0 {
		lo = annual(min, multiplier)
	}
	if maxOK && max > 0 {
		hi = annual(max, multiplier)
	}
	if lo != nil && hi != nil && *lo > *hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// maxAnnual bounds a plausible annual salary; anything above is treated as unknown.
const maxAnnual = 1e9

func annual(v, multiplier float64) *int {
	a := math.Round(v * multiplier)
	if math.IsNaN(a) || a <= 0 || a > maxAnnual {
		return nil
	}
	out := int(a)
	return &out
}

func periodMultiplier(period string) float64 {
	key := strings.ToLower(strings.TrimSpace(period))
	key = strings.TrimPrefix(key, "per ")
	if m, ok := periodMultipliers[key]; ok {
		return m
	}
	return 1
}

func periodFromText(text string) string {
	m := periodPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// parseAmount reads numbers, numeric strings and strings like "$120k" or "120,000".
func parseAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
		amounts := amountsIn(t)
		if len(amounts) == 0 {
			return 0, false
		}
		return amounts[0], true
	}
	return 0, false
}

// parseRangeText reads "$120k - $150k", "90,000 to 110,000" or a single amount.
func parseRangeText(text string) (min float64, minOK bool, max float64, maxOK bool) {
	amounts := amountsIn(text)
	switch len(amounts) {
	case 0:
		return 0, false, 0, false
	case 1:
		return amounts[0], true, 0, false
	default:
		return amounts[0], true, amounts[1], true
	}
}

func amountsIn(text string) []float64 {
	var out []float64
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "k":
			f *= 1_000
		case "m":
			f *= 1_000_000
		}
		out = append(out, f)
	}
	return out
}

func currencyFromText(text string) string {
	switch {
	case strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(text, "£"):
		return "GBP"
	case strings.Contains(text, "$"):
		return "USD"
	}
	return ""
}
