package domain

// Outcome tags the result of cheap filtering for one posting
type Outcome string

const (
	OutcomePass              Outcome = "PASS"
	OutcomeRejectedDuplicate Outcome = "REJECTED_DUPLICATE"
	OutcomeRejectedAge       Outcome = "REJECTED_AGE"
	OutcomeRejectedTitle     Outcome = "REJECTED_TITLE"
)

// Outcomes lists every tag in evaluation order
var Outcomes = []Outcome{
	OutcomeRejectedDuplicate,
	OutcomeRejectedAge,
	OutcomeRejectedTitle,
	OutcomePass,
}

// RejectionRecord explains the filter outcome for one posting
type RejectionRecord struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}
