package domain

import (
	"strings"
	"time"
)

// Source identifies the provider a paper was discovered through.
type Source string

const (
	SourceArxiv    Source = "arxiv"
	SourceOpenAlex Source = "openalex"
	SourceCVF      Source = "cvf"
	SourceReddit   Source = "reddit"
)

// RawPaper is an item exactly as a source client returned it, before
// identity resolution. NativeID carries the provider's own stable
// identifier (arXiv ID, Reddit post ID); ExternalID carries a global
// identifier such as a DOI when the provider reports one. Either or
// both may be empty.
type RawPaper struct {
	NativeID   string
	ExternalID string
	Title      string
	Authors    []string
	Venue      string
	Year       int
	URL        string
	Abstract   string
	Source     Source
}

// Paper is a discovered item with its resolved canonical identity.
// Descriptive metadata is immutable once set.
type Paper struct {
	CanonicalID    string
	Source         Source
	NativeID       string
	DOI            string
	Title          string
	Authors        []string
	Venue          string
	Year           int
	URL            string
	Abstract       string
	DiscoveredDate time.Time
}

// NewPaper stamps a raw item with its resolved canonical identity.
func NewPaper(canonicalID string, raw RawPaper, discovered time.Time) Paper {
	return Paper{
		CanonicalID:    canonicalID,
		Source:         raw.Source,
		NativeID:       raw.NativeID,
		DOI:            raw.ExternalID,
		Title:          raw.Title,
		Authors:        raw.Authors,
		Venue:          raw.Venue,
		Year:           raw.Year,
		URL:            raw.URL,
		Abstract:       raw.Abstract,
		DiscoveredDate: discovered,
	}
}

// AuthorList renders the authors the way ledger rows store them.
func (p Paper) AuthorList() string {
	return strings.Join(p.Authors, "; ")
}

// Draft holds the three generated texts for one paper. Fields are
// mutable while the reflection loop runs and frozen once an outcome is
// reached.
type Draft struct {
	AbstractRewrite string
	ProblemSolved   string
	LinkedInPost    string
}

// Critique is the critic's structured verdict on a draft.
type Critique struct {
	AbstractRewriteIssues []string
	ProblemSolvedIssues   []string
	LinkedInPostIssues    []string
	RevisionActions       []string
	OverallScore          float64
}

// Outcome tags how a draft left the reflection loop.
type Outcome string

const (
	// OutcomeAccepted means the critic scored the draft at or above the
	// acceptance threshold.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeForceAccepted means the revision budget ran out (or a
	// revision could not be applied) and the current draft was kept
	// despite a low score.
	OutcomeForceAccepted Outcome = "force_accepted"
	// OutcomeAcceptedOnParseFailure means the critic's reply could not
	// be parsed and the draft was accepted unreviewed.
	OutcomeAcceptedOnParseFailure Outcome = "accepted_on_parse_failure"
)

// Record is the persisted projection of an accepted paper. Once
// appended to the ledger a record is never mutated or removed.
type Record struct {
	CanonicalID     string
	Source          Source
	NativeID        string
	DOI             string
	Title           string
	Authors         string
	Venue           string
	Year            int
	URL             string
	Abstract        string
	DiscoveredDate  time.Time
	ProcessedDate   time.Time
	ModelName       string
	AbstractRewrite string
	ProblemSolved   string
	LinkedInPost    string
	Outcome         Outcome
}

// NewRecord freezes a paper and its accepted draft into a ledger record.
func NewRecord(paper Paper, draft Draft, outcome Outcome, modelName string, processed time.Time) Record {
	return Record{
		CanonicalID:     paper.CanonicalID,
		Source:          paper.Source,
		NativeID:        paper.NativeID,
		DOI:             paper.DOI,
		Title:           paper.Title,
		Authors:         paper.AuthorList(),
		Venue:           paper.Venue,
		Year:            paper.Year,
		URL:             paper.URL,
		Abstract:        paper.Abstract,
		DiscoveredDate:  paper.DiscoveredDate,
		ProcessedDate:   processed,
		ModelName:       modelName,
		AbstractRewrite: draft.AbstractRewrite,
		ProblemSolved:   draft.ProblemSolved,
		LinkedInPost:    draft.LinkedInPost,
		Outcome:         outcome,
	}
}
