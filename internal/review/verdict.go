package review

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/firmable/unify/internal/model"
)

// ParseVerdict decodes an oracle response body into a Verdict. The contract
// is strict: the body must be exactly one JSON object with the three known
// fields, all present and correctly typed. Extra prose, markdown fences,
// unknown fields, trailing tokens or an unrecognized confidence value all
// fail the item; there is no best-effort recovery.
func ParseVerdict(body string) (model.Verdict, error) {
	var raw struct {
		IsMatch    *bool   `json:"is_match"`
		Confidence *string `json:"confidence"`
		Reason     *string `json:"reason"`
	}

	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(body)))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&raw); err != nil {
		return model.Verdict{}, eris.Wrap(err, "review: decode verdict")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return model.Verdict{}, eris.New("review: trailing content after verdict object")
	}

	if raw.IsMatch == nil {
		return model.Verdict{}, eris.New("review: verdict missing is_match")
	}
	if raw.Confidence == nil {
		return model.Verdict{}, eris.New("review: verdict missing confidence")
	}
	if raw.Reason == nil {
		return model.Verdict{}, eris.New("review: verdict missing reason")
	}

	conf := model.Confidence(strings.ToLower(*raw.Confidence))
	if !conf.Valid() {
		return model.Verdict{}, eris.Errorf("review: unknown confidence %q", *raw.Confidence)
	}

	return model.Verdict{
		IsMatch:    *raw.IsMatch,
		Confidence: conf,
		Reason:     *raw.Reason,
	}, nil
}
