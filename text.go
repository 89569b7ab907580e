package reagentcrawler

import "strings"

// DefaultValue is written for every field that could not be extracted.
const DefaultValue = "N/A"

// ValueDelimiter joins multi-valued fields such as sizes and prices.
const ValueDelimiter = "/"

var invisibleReplacer = strings.NewReplacer(
	"\u00a0", " ", // no-break space
	"\u202f", " ", // narrow no-break space
	"\u2007", " ", // figure space
	"\u00ad", "", // soft hyphen
	"\u200b", "", // zero width space
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\ufeff", "",
)

// CleanText collapses vendor whitespace quirks into single spaces and trims the result.
func CleanText(s string) string {
	s = invisibleReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// JoinValues cleans values, drops empty ones and joins the rest in source order.
// An empty result resolves to def.
func JoinValues(values []string, def string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = CleanText(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return def
	}
	return strings.Join(kept, ValueDelimiter)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
