package extract

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// RoundUnspecified is the normalized round type for missing or unparseable
// round labels.
const RoundUnspecified = "UNSPECIFIED"

// specialRounds pass through normalization unchanged (after uppercasing).
var specialRounds = map[string]bool{
	"SEED":  true,
	"ANGEL": true,
	"IPO":   true,
}

// CleanAmount converts an oracle-reported amount string to USD millions.
// Currency symbols, thousands separators, and unit suffixes are stripped
// before numeric conversion.
func CleanAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	for _, token := range []string{"$", ",", "USD", "usd", "million", "M", "m"} {
		s = strings.ReplaceAll(s, token, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, eris.New("extract: empty amount")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "extract: parse amount %q", raw)
	}
	if v < 0 {
		return 0, eris.Errorf("extract: negative amount %q", raw)
	}
	return v, nil
}

// NormalizeRound standardizes a round label: bare series letters get a
// "SERIES " prefix, recognized special cases (SEED, ANGEL, IPO) pass through,
// and anything empty becomes UNSPECIFIED.
func NormalizeRound(raw string) string {
	round := strings.ToUpper(strings.TrimSpace(raw))
	if round == "" {
		return RoundUnspecified
	}
	if strings.Contains(round, "SERIES") || specialRounds[round] {
		return round
	}
	return "SERIES " + round
}
