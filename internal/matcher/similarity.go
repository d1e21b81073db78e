package matcher

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

var levParams = levenshtein.NewParams()

// TokenSortRatio scores two names on a 0–100 scale using Levenshtein
// similarity over their whitespace tokens in sorted order, making the score
// invariant to word order ("LTD ACME PTY" == "ACME PTY LTD").
func TokenSortRatio(a, b string) float64 {
	sa := tokenSort(a)
	sb := tokenSort(b)
	if sa == "" || sb == "" {
		return 0
	}
	return levenshtein.Similarity(sa, sb, levParams) * 100
}

func tokenSort(s string) string {
	tokens := strings.Fields(strings.ToUpper(s))
	if len(tokens) == 0 {
		return ""
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
