// Package pipeline orchestrates a full matching run: fetch both staging
// feeds, match, classify, adjudicate ambiguous pairs, and persist the
// accepted set.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/firmable/unify/internal/classifier"
	"github.com/firmable/unify/internal/matcher"
	"github.com/firmable/unify/internal/model"
	"github.com/firmable/unify/internal/review"
	"github.com/firmable/unify/internal/store"
)

// Options tunes a run.
type Options struct {
	Registry   store.RegistryFilter
	Mentions   store.MentionFilter
	Match      classifier.Config
	MaxReviews int
}

// Pipeline wires a store and an optional reviewer into a runnable match job.
// A nil reviewer is legal: ambiguous candidates then stay ambiguous and
// nothing is auto-accepted on the oracle's behalf.
type Pipeline struct {
	store    store.Store
	reviewer *review.Reviewer
	opts     Options
}

// New builds a Pipeline.
func New(st store.Store, rev *review.Reviewer, opts Options) *Pipeline {
	return &Pipeline{store: st, reviewer: rev, opts: opts}
}

// Run executes one matching run end to end and returns the count breakdown.
// The unified write is the only mutation; a failure there fails the run.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("matching run started",
		zap.String("policy", string(p.opts.Match.Policy)),
		zap.Int("max_reviews", p.opts.MaxReviews),
	)

	var (
		entities []model.RegistryEntity
		mentions []model.WebMention
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entities, err = p.store.FetchRegistryEntities(gctx, p.opts.Registry)
		return eris.Wrap(err, "pipeline: fetch registry entities")
	})
	g.Go(func() error {
		var err error
		mentions, err = p.store.FetchWebMentions(gctx, p.opts.Mentions)
		return eris.Wrap(err, "pipeline: fetch web mentions")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("staging feeds loaded",
		zap.Int("registry_entities", len(entities)),
		zap.Int("web_mentions", len(mentions)),
	)

	res := matcher.Match(entities, mentions)
	tiers := classifier.Classify(res.Candidates, p.opts.Match)
	outcome := p.reviewer.Review(ctx, tiers.NeedsReview, p.opts.MaxReviews)

	accepted := make([]model.MatchCandidate, 0, len(tiers.AutoAccept)+len(outcome.Accepted))
	accepted = append(accepted, tiers.AutoAccept...)
	accepted = append(accepted, outcome.Accepted...)

	written, err := p.store.WriteUnified(ctx, accepted)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: write unified")
	}

	summary := &model.RunSummary{
		RegistryEntities: len(entities),
		WebMentions:      len(mentions),
		AutoAccepted:     len(tiers.AutoAccept),
		OracleApproved:   len(outcome.Accepted),
		StillAmbiguous:   len(outcome.StillAmbiguous),
		BelowThreshold:   len(tiers.BelowThreshold),
		Unmatched:        len(res.Unmatched),
		TotalWritten:     written,
	}
	log.Info("matching run complete",
		zap.Int("auto_accepted", summary.AutoAccepted),
		zap.Int("oracle_approved", summary.OracleApproved),
		zap.Int("still_ambiguous", summary.StillAmbiguous),
		zap.Int("below_threshold", summary.BelowThreshold),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("total_written", summary.TotalWritten),
	)
	return summary, nil
}
