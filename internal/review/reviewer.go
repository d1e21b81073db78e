// Package review resolves ambiguous match candidates through an external
// LLM judge. Reviews are sequential, strictly in input order, capped per run,
// and every prompt/response pair is appended to a JSONL audit log whether or
// not the pair is accepted.
package review

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/firmable/unify/internal/model"
	"github.com/firmable/unify/pkg/anthropic"
)

// Config tunes the oracle client.
type Config struct {
	Model          string  `mapstructure:"model"`
	MaxReviews     int     `mapstructure:"max_reviews"`
	AuditLogPath   string  `mapstructure:"audit_log_path"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec"`
	MaxTokens      int64   `mapstructure:"max_tokens"`
}

// Reviewer batches ambiguous candidates to the judgment oracle. A nil
// Reviewer is the "oracle unavailable" state: Review on it returns zero
// accepted and the full input as still-ambiguous without any call or audit
// write.
type Reviewer struct {
	client  anthropic.Client
	cfg     Config
	audit   *AuditLog
	limiter *rate.Limiter
	retry   retryPolicy
}

// New builds a Reviewer around an oracle client. Returns nil when client is
// nil, so a missing API key degrades to the skip-everything path instead of
// erroring at call time.
func New(client anthropic.Client, cfg Config) *Reviewer {
	if client == nil {
		return nil
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	return &Reviewer{
		client:  client,
		cfg:     cfg,
		audit:   NewAuditLog(cfg.AuditLogPath),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   retryPolicy{attempts: 2, backoff: 500 * time.Millisecond},
	}
}

// Outcome is the reviewal result: accepted pairs re-tagged oracle_assisted,
// and everything else (rejected reviews plus the deferred tail) in their
// original, unmodified form.
type Outcome struct {
	Accepted       []model.MatchCandidate
	StillAmbiguous []model.MatchCandidate
}

// Review sends at most maxToReview candidates to the oracle, in input order.
// Candidates past the cap are deferred untouched. A pair is accepted iff the
// verdict says is_match with medium or high confidence; a low-confidence yes
// fails closed. Per-item oracle failures are logged and count as rejections
// for that item only.
//
// Acceptance is tracked by index into the review slice, never by value
// comparison, so structurally identical candidates cannot shadow each other.
func (r *Reviewer) Review(ctx context.Context, candidates []model.MatchCandidate, maxToReview int) Outcome {
	if len(candidates) == 0 {
		return Outcome{}
	}
	if r == nil {
		zap.L().Info("oracle unavailable, skipping reviewal",
			zap.Int("still_ambiguous", len(candidates)),
		)
		return Outcome{StillAmbiguous: candidates}
	}

	if maxToReview < 0 {
		maxToReview = 0
	}
	if maxToReview > len(candidates) {
		maxToReview = len(candidates)
	}
	toReview := candidates[:maxToReview]
	deferred := candidates[maxToReview:]

	zap.L().Info("sending ambiguous candidates to oracle",
		zap.Int("to_review", len(toReview)),
		zap.Int("deferred", len(deferred)),
		zap.String("model", r.cfg.Model),
	)

	accepted := make([]bool, len(toReview))
	var out Outcome

	for i, cand := range toReview {
		verdict, ok := r.reviewOne(ctx, cand)
		if !ok {
			continue
		}
		if verdict.IsMatch && verdict.Confidence.AtLeastMedium() {
			accepted[i] = true
			out.Accepted = append(out.Accepted, cand.Retag(model.MethodOracleAssisted))
		}
	}

	for i, cand := range toReview {
		if !accepted[i] {
			out.StillAmbiguous = append(out.StillAmbiguous, cand)
		}
	}
	out.StillAmbiguous = append(out.StillAmbiguous, deferred...)

	zap.L().Info("oracle reviewal complete",
		zap.Int("approved", len(out.Accepted)),
		zap.Int("still_ambiguous", len(out.StillAmbiguous)),
	)
	return out
}

// reviewOne runs a single candidate through prompt, call, audit, parse.
// Returns ok=false for any per-item failure.
func (r *Reviewer) reviewOne(ctx context.Context, cand model.MatchCandidate) (model.Verdict, bool) {
	prompt := BuildPrompt(cand)

	if err := r.limiter.Wait(ctx); err != nil {
		zap.L().Warn("oracle call aborted", zap.Error(err))
		return model.Verdict{}, false
	}

	var resp *anthropic.MessageResponse
	err := r.retry.do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     r.cfg.Model,
			MaxTokens: r.cfg.MaxTokens,
			System:    systemPrompt,
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
			Temperature: ptr(0.1),
		})
		return callErr
	})
	if err != nil {
		zap.L().Warn("oracle call failed for one candidate",
			zap.Int64("mention_id", cand.Mention.ID),
			zap.String("abn", cand.Entity.ABN),
			zap.Error(err),
		)
		return model.Verdict{}, false
	}

	if err := r.audit.Append(prompt, resp.Text); err != nil {
		zap.L().Warn("audit log append failed", zap.Error(err))
	}

	verdict, err := ParseVerdict(resp.Text)
	if err != nil {
		zap.L().Warn("oracle verdict unparseable",
			zap.Int64("mention_id", cand.Mention.ID),
			zap.String("abn", cand.Entity.ABN),
			zap.Error(err),
		)
		return model.Verdict{}, false
	}

	zap.L().Debug("oracle verdict",
		zap.Int64("mention_id", cand.Mention.ID),
		zap.String("abn", cand.Entity.ABN),
		zap.Bool("is_match", verdict.IsMatch),
		zap.String("confidence", string(verdict.Confidence)),
	)
	return verdict, true
}

func ptr[T any](v T) *T { return &v }
