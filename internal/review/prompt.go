package review

import (
	"fmt"
	"strings"

	"github.com/firmable/unify/internal/model"
	"github.com/firmable/unify/internal/normalize"
)

const systemPrompt = "You are an assistant that matches Australian companies " +
	"between website data and business registry records. Respond ONLY with JSON."

const promptTemplate = `You are matching Australian companies between a website (Common Crawl) and a business registry record.

Common Crawl company:
- Normalised name: %s
- Bare name (legal suffix stripped): %s
- URL: %s
- Domain: %s

Registry candidate:
- ABN: %s
- Entity name (normalised): %s
- Entity name (raw): %s
- Bare name (legal suffix stripped): %s
- Entity type: %s
- Status: %s
- Address: %s, %s, %s %s

Question:
Are these records referring to the same underlying company?

Respond **only** with a JSON object with the following shape:
{
  "is_match": true or false,
  "confidence": "low" | "medium" | "high",
  "reason": "short explanation here"
}`

// BuildPrompt renders the disambiguation prompt for one candidate pair,
// embedding both records' salient attributes.
func BuildPrompt(cand model.MatchCandidate) string {
	cc := cand.Mention
	abr := cand.Entity

	ccName := cc.NameNorm
	if ccName == "" {
		ccName = cc.NameRaw
	}

	return strings.TrimSpace(fmt.Sprintf(promptTemplate,
		ccName, normalize.BareName(ccName), cc.URL, cc.Domain,
		abr.ABN, abr.NameNorm, abr.NameRaw, normalize.BareName(abr.NameNorm),
		abr.Type, abr.Status,
		abr.Address, abr.Suburb, abr.State, abr.Postcode,
	))
}
