package domain

import (
	"regexp"
	"strings"
)

// CandidateSymbol is a ticker under probe plus optional display aliases.
type CandidateSymbol struct {
	Ticker  string
	Aliases []string
}

var symbolRe = regexp.MustCompile(`^[A-Za-z0-9^=.\-:]{1,32}$`)

func ValidateSymbol(s string) bool {
	return symbolRe.MatchString(s)
}

// AliasSeparator starts the alias list of a candidate. "=" is a ticker
// character (USDEGP=X, CL=F) so it cannot be used here.
const AliasSeparator = ";"

// ParseCandidate reads "TICKER" or "TICKER;Alias One|Alias Two".
func ParseCandidate(s string) (CandidateSymbol, bool) {
	ticker, rest, hasAliases := strings.Cut(strings.TrimSpace(s), AliasSeparator)
	ticker = strings.TrimSpace(ticker)
	if !ValidateSymbol(ticker) {
		return CandidateSymbol{}, false
	}
	c := CandidateSymbol{Ticker: ticker}
	if hasAliases {
		for _, a := range strings.Split(rest, "|") {
			if a = strings.TrimSpace(a); a != "" {
				c.Aliases = append(c.Aliases, a)
			}
		}
	}
	return c, true
}

// ParseCandidates keeps input order and drops malformed entries.
func ParseCandidates(in []string) []CandidateSymbol {
	out := make([]CandidateSymbol, 0, len(in))
	for _, s := range in {
		if c, ok := ParseCandidate(s); ok {
			out = append(out, c)
		}
	}
	return out
}
