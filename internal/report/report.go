package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the server-side lifecycle state of a report.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status will no longer change server-side.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Method is the detection algorithm family used server-side. Opaque to the
// client beyond being a selectable parameter.
type Method string

const (
	MethodTFIDF      Method = "tfidf"
	MethodEmbeddings Method = "embeddings"
)

// Type discriminates the two report variants.
type Type string

const (
	TypeComparison Type = "comparison"
	TypeGeneral    Type = "general"
)

// DocumentRef identifies a participant document by opaque id and display name.
type DocumentRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FileType string `json:"type,omitempty"`
}

// Match is one pair of similar text chunks found between two texts.
type Match struct {
	Text1      string  `json:"text1"`
	Text2      string  `json:"text2"`
	Similarity float64 `json:"similarity"`
	Position1  int     `json:"position1"`
	Position2  int     `json:"position2"`
}

// Comparison carries the variant payload of a pairwise document comparison.
type Comparison struct {
	Document1 DocumentRef
	Document2 DocumentRef
	Matches   []Match
}

// SourceResult is the outcome of checking one corpus source during a general
// check.
type SourceResult struct {
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	Matches    []Match `json:"matches"`
}

// General carries the variant payload of a multi-source plagiarism check.
type General struct {
	Document       DocumentRef
	SourcesChecked []string
	Progress       *float64
	Results        []SourceResult
}

// Report is one plagiarism-check result, either a pairwise comparison or a
// general multi-source check. Exactly one of Comparison/General is non-nil,
// matching Type.
type Report struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Type      Type
	Method    Method
	Status    Status

	similarityScore *float64

	Comparison *Comparison
	General    *General
}

// Score returns the similarity score (0-100) and true only when the report
// completed. The server writes the field before the terminal transition, so
// consumers must treat it as unknown for any other status.
func (r Report) Score() (float64, bool) {
	if r.Status != StatusCompleted || r.similarityScore == nil {
		return 0, false
	}
	return *r.similarityScore, true
}

// SetScore is used by decoders and tests to attach a raw score.
func (r *Report) SetScore(v float64) {
	r.similarityScore = &v
}

// ParticipantNames returns the display names of the documents involved, in
// wire order.
func (r Report) ParticipantNames() []string {
	switch {
	case r.Comparison != nil:
		return []string{r.Comparison.Document1.Name, r.Comparison.Document2.Name}
	case r.General != nil:
		return []string{r.General.Document.Name}
	}
	return nil
}

// DisplayName returns the report name, falling back to a label derived from
// the participant documents.
func (r Report) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	switch {
	case r.Comparison != nil:
		return r.Comparison.Document1.Name + " vs " + r.Comparison.Document2.Name
	case r.General != nil:
		return r.General.Document.Name
	}
	return r.ID
}

// wireReport is the flat JSON shape the backend serves. Fields differ by
// report_type; decoding folds them into the tagged variants.
type wireReport struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Document1       *DocumentRef    `json:"document1"`
	Document2       *DocumentRef    `json:"document2"`
	SimilarityScore *float64        `json:"similarity_score"`
	CreatedAt       string          `json:"created_at"`
	Status          string          `json:"status"`
	DetectionMethod string          `json:"detection_method"`
	ReportType      string          `json:"report_type"`
	SourcesChecked  []string        `json:"sources_checked"`
	Progress        *float64        `json:"progress"`
	Results         json.RawMessage `json:"results"`
	MatchedContent  []Match         `json:"matched_content"`
}

type wireGeneralResults struct {
	SourceResults []SourceResult `json:"source_results"`
}

// UnmarshalJSON decodes the backend's flat report object into the tagged
// union. An absent report_type means a pairwise comparison; the backend only
// stamps the field for general checks.
func (r *Report) UnmarshalJSON(data []byte) error {
	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	created, err := parseCreatedAt(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("report %s: %w", w.ID, err)
	}

	*r = Report{
		ID:              w.ID,
		Name:            w.Name,
		CreatedAt:       created,
		Method:          Method(w.DetectionMethod),
		Status:          Status(w.Status),
		similarityScore: w.SimilarityScore,
	}

	if w.ReportType == string(TypeGeneral) {
		r.Type = TypeGeneral
		g := &General{
			SourcesChecked: w.SourcesChecked,
			Progress:       w.Progress,
		}
		if w.Document1 != nil {
			g.Document = *w.Document1
		}
		if len(w.Results) > 0 && string(w.Results) != "null" {
			var res wireGeneralResults
			if err := json.Unmarshal(w.Results, &res); err == nil {
				g.Results = res.SourceResults
			}
		}
		r.General = g
		return nil
	}

	r.Type = TypeComparison
	c := &Comparison{Matches: w.MatchedContent}
	if w.Document1 != nil {
		c.Document1 = *w.Document1
	}
	if w.Document2 != nil {
		c.Document2 = *w.Document2
	}
	r.Comparison = c
	return nil
}

// MarshalJSON writes the same flat wire shape the backend serves, so cached
// and freshly fetched reports are interchangeable.
func (r Report) MarshalJSON() ([]byte, error) {
	w := wireReport{
		ID:              r.ID,
		Name:            r.Name,
		SimilarityScore: r.similarityScore,
		Status:          string(r.Status),
		DetectionMethod: string(r.Method),
	}
	if !r.CreatedAt.IsZero() {
		w.CreatedAt = r.CreatedAt.Format(time.RFC3339Nano)
	}
	switch {
	case r.General != nil:
		w.ReportType = string(TypeGeneral)
		doc := r.General.Document
		w.Document1 = &doc
		w.SourcesChecked = r.General.SourcesChecked
		w.Progress = r.General.Progress
		if len(r.General.Results) > 0 {
			res, err := json.Marshal(wireGeneralResults{SourceResults: r.General.Results})
			if err != nil {
				return nil, err
			}
			w.Results = res
		}
	case r.Comparison != nil:
		d1, d2 := r.Comparison.Document1, r.Comparison.Document2
		w.Document1 = &d1
		w.Document2 = &d2
		w.MatchedContent = r.Comparison.Matches
	}
	return json.Marshal(w)
}

// createdAtLayouts covers the backend's timestamp forms: RFC3339 and naive
// ISO 8601 with or without fractional seconds.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseCreatedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized created_at %q", s)
}
