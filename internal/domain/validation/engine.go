package validation

import (
	"fmt"

	"github.com/shopopti/backend/internal/domain/extraction"
)

// Action is the admission outcome for an extracted record.
type Action string

const (
	// ActionImport admits the record as an active catalog entry.
	ActionImport Action = "import"
	// ActionDraft quarantines the record for manual review.
	ActionDraft Action = "draft"
	// ActionBlock rejects the record outright.
	ActionBlock Action = "block"
)

// Decision is the classification of one extraction.
type Decision struct {
	Action  Action   `json:"action"`
	Reason  string   `json:"reason"`
	Details []string `json:"details,omitempty"`
}

// Result is the outcome of scoring one RawExtraction. Derived, never stored
// independently; retained only inside the persisted record's metadata.
type Result struct {
	Score           int      `json:"score"`
	MissingCritical []string `json:"missing_critical_fields,omitempty"`
	Decision        Decision `json:"decision"`
}

// Thresholds holds the admission-control tuning knobs. The zero value is
// unusable; construct with DefaultThresholds and override.
type Thresholds struct {
	// MinScore is the completeness score below which a record is drafted.
	MinScore int
	// MinDescriptionLength is the description length below which a penalty applies.
	MinDescriptionLength int

	// Penalties per missing or weak signal.
	PenaltyNoImages    int
	PenaltySingleImage int
	PenaltyShortDesc   int
	PenaltyNoBrand     int
	PenaltyNoSKU       int
	PenaltyNoSpecs     int
}

// DefaultThresholds returns the documented default admission policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinScore:             70,
		MinDescriptionLength: 50,
		PenaltyNoImages:      30,
		PenaltySingleImage:   10,
		PenaltyShortDesc:     10,
		PenaltyNoBrand:       5,
		PenaltyNoSKU:         5,
		PenaltyNoSpecs:       5,
	}
}

// Engine scores extractions and classifies them into an admission outcome.
// It performs no I/O and holds no mutable state: the same input always yields
// the same Result.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates a decision engine with the given thresholds.
func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Evaluate scores a RawExtraction and returns the admission decision.
// It never edits the extraction, only classifies it.
func (e *Engine) Evaluate(raw *extraction.RawExtraction) Result {
	t := e.thresholds
	score := 100
	var missing []string
	var details []string

	if !raw.HasTitle() {
		missing = append(missing, "title")
	}
	if !raw.HasPrice() {
		missing = append(missing, "price")
	}

	switch len(raw.Images) {
	case 0:
		score -= t.PenaltyNoImages
		details = append(details, "no images extracted")
	case 1:
		score -= t.PenaltySingleImage
		details = append(details, "single image only")
	}

	if len(raw.Description) < t.MinDescriptionLength {
		score -= t.PenaltyShortDesc
		details = append(details, fmt.Sprintf("description shorter than %d characters", t.MinDescriptionLength))
	}
	if raw.Brand == "" {
		score -= t.PenaltyNoBrand
		details = append(details, "no brand identified")
	}
	if raw.SKU == "" && raw.ExternalID == "" {
		score -= t.PenaltyNoSKU
		details = append(details, "no SKU or external id")
	}
	if len(raw.Specifications) == 0 {
		score -= t.PenaltyNoSpecs
		details = append(details, "no specifications table")
	}

	if score < 0 {
		score = 0
	}

	return Result{
		Score:           score,
		MissingCritical: missing,
		Decision:        e.decide(score, missing, len(raw.Images), details),
	}
}

// decide applies the admission policy in order; first match wins.
func (e *Engine) decide(score int, missing []string, imageCount int, details []string) Decision {
	if len(missing) > 0 {
		return Decision{
			Action:  ActionBlock,
			Reason:  fmt.Sprintf("missing critical field: %s", missing[0]),
			Details: details,
		}
	}
	if imageCount == 0 {
		return Decision{
			Action:  ActionDraft,
			Reason:  "no visual content",
			Details: details,
		}
	}
	if score < e.thresholds.MinScore {
		return Decision{
			Action:  ActionDraft,
			Reason:  fmt.Sprintf("low completeness score: %d below threshold %d", score, e.thresholds.MinScore),
			Details: details,
		}
	}
	return Decision{
		Action:  ActionImport,
		Reason:  "passed admission checks",
		Details: details,
	}
}
