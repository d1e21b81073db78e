// Package matcher finds the best-scoring registry candidate for each web
// mention. The scan is deliberately exhaustive over the working set, with no
// blocking or indexing, so results are a pure, deterministic function of the
// two input collections.
package matcher

import (
	"go.uber.org/zap"

	"github.com/firmable/unify/internal/model"
	"github.com/firmable/unify/internal/normalize"
)

// Result partitions matcher output: one candidate per matchable mention,
// plus the mentions that could not be compared at all.
type Result struct {
	Candidates []model.MatchCandidate
	Unmatched  []model.WebMention
}

// Match scans every registry entity for every mention and keeps the entity
// with the strictly highest token-sort score. Ties keep the first-seen
// entity: a later candidate with an equal score never replaces the current
// best, so registry order is part of the contract.
//
// Mentions with an empty normalized name are routed straight to Unmatched,
// as is every mention when the registry has no entity with a non-empty
// normalized name.
func Match(entities []model.RegistryEntity, mentions []model.WebMention) Result {
	var res Result

	// Staging feeds arrive pre-normalized, but re-applying the loader's
	// normalization here keeps the score a pure function of the raw inputs.
	entityNames := make([]string, len(entities))
	for i := range entities {
		entityNames[i] = normalize.Name(entities[i].NameNorm)
	}

	for _, mention := range mentions {
		name := normalize.Name(mention.NameNorm)
		if name == "" {
			res.Unmatched = append(res.Unmatched, mention)
			continue
		}

		bestScore := -1.0
		var best *model.RegistryEntity
		for i := range entities {
			if entityNames[i] == "" {
				continue
			}
			score := TokenSortRatio(name, entityNames[i])
			if score > bestScore {
				bestScore = score
				best = &entities[i]
			}
		}

		if best == nil {
			res.Unmatched = append(res.Unmatched, mention)
			continue
		}

		res.Candidates = append(res.Candidates, model.MatchCandidate{
			Mention: mention,
			Entity:  *best,
			Score:   bestScore,
			Method:  model.MethodFuzzyName,
		})
	}

	zap.L().Info("matching complete",
		zap.Int("entities", len(entities)),
		zap.Int("mentions", len(mentions)),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("unmatched", len(res.Unmatched)),
	)
	return res
}
