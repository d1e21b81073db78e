package model

import "time"

// RegistryEntity is one authoritative record from the business registry
// staging table. Fields are pre-cleaned at load time: a missing value is an
// empty string, never absent. Immutable for the life of a run.
type RegistryEntity struct {
	ABN          string `json:"abn"`
	NameNorm     string `json:"entity_name_norm"`
	NameRaw      string `json:"entity_name_raw"`
	Type         string `json:"entity_type"`
	Status       string `json:"entity_status"`
	Address      string `json:"address_full"`
	Suburb       string `json:"suburb"`
	Postcode     string `json:"postcode"`
	State        string `json:"state"`
	StartDateRaw string `json:"start_date_raw"`
}

// WebMention is one company-like record derived from crawled web content.
// NameNorm may be empty, in which case the mention is never matchable.
type WebMention struct {
	ID        int64     `json:"commoncrawl_id"`
	CrawlID   string    `json:"crawl_id"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	NameNorm  string    `json:"company_name_norm"`
	NameRaw   string    `json:"company_name_raw"`
	Industry  string    `json:"industry"`
	FetchedAt time.Time `json:"fetched_at"`
}

// MatchMethod tags how a candidate pairing was produced or accepted.
type MatchMethod string

const (
	MethodFuzzyName      MatchMethod = "fuzzy_name"
	MethodFuzzyAmbiguous MatchMethod = "fuzzy_name_ambiguous"
	MethodOracleAssisted MatchMethod = "oracle_assisted"
)

// MatchCandidate pairs a web mention with its best-scoring registry entity.
// Candidates are never mutated in place; re-classification produces a
// re-tagged copy.
type MatchCandidate struct {
	Mention WebMention     `json:"cc"`
	Entity  RegistryEntity `json:"abr"`
	Score   float64        `json:"score"`
	Method  MatchMethod    `json:"method"`
}

// Retag returns a copy of the candidate carrying a new provenance method.
func (c MatchCandidate) Retag(m MatchMethod) MatchCandidate {
	c.Method = m
	return c
}

// Confidence is the oracle's self-reported certainty, ordered low < medium < high.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Valid reports whether c is one of the three known confidence levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// AtLeastMedium reports whether c clears the acceptance bar.
func (c Confidence) AtLeastMedium() bool {
	return c == ConfidenceMedium || c == ConfidenceHigh
}

// Verdict is the oracle's structured decision for one candidate pair. It is
// logged for audit but never persisted as a first-class entity.
type Verdict struct {
	IsMatch    bool       `json:"is_match"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
}

// UnifiedCompany is the terminal merged entity: registry fields win for
// legal and address attributes, web fields supply domain, URL and industry.
type UnifiedCompany struct {
	CompanyID    int64      `json:"company_id"`
	ABN          string     `json:"abn"`
	Name         string     `json:"unified_name"`
	NameNorm     string     `json:"unified_name_norm"`
	Domain       string     `json:"website_domain"`
	URLSample    string     `json:"website_url_sample"`
	Industry     string     `json:"industry"`
	EntityType   string     `json:"entity_type"`
	EntityStatus string     `json:"entity_status"`
	Address      string     `json:"address_full"`
	Suburb       string     `json:"suburb"`
	Postcode     string     `json:"postcode"`
	State        string     `json:"state"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	Score        float64    `json:"match_confidence"`
	Method       MatchMethod `json:"match_method"`
}

// Source system identifiers for source link rows.
const (
	SourceABR         = "ABR"
	SourceCommonCrawl = "COMMONCRAWL"
)

// SourceLink maps a unified company back to one originating record's
// natural key. Every unified company has exactly two after a successful write.
type SourceLink struct {
	CompanyID    int64  `json:"company_id"`
	SourceSystem string `json:"source_system"`
	SourceKey    string `json:"source_key"`
}
