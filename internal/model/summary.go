package model

// RunSummary is the per-run count breakdown reported to the user after a
// matching run terminates.
type RunSummary struct {
	RegistryEntities int `json:"registry_entities"`
	WebMentions      int `json:"web_mentions"`
	AutoAccepted     int `json:"auto_accepted"`
	OracleApproved   int `json:"oracle_approved"`
	StillAmbiguous   int `json:"still_ambiguous"`
	BelowThreshold   int `json:"below_threshold"`
	Unmatched        int `json:"unmatched"`
	TotalWritten     int `json:"total_written"`
}
