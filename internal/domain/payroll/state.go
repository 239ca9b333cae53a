package payroll

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft     RunStatus = "DRAFT"
	RunStatusComputing RunStatus = "COMPUTING"
	RunStatusReview    RunStatus = "REVIEW"
	RunStatusApproved  RunStatus = "APPROVED"
	RunStatusReleased  RunStatus = "RELEASED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

var RunStatusValues = []string{
	string(RunStatusDraft),
	string(RunStatusComputing),
	string(RunStatusReview),
	string(RunStatusApproved),
	string(RunStatusReleased),
	string(RunStatusCancelled),
}

// COMPUTING -> DRAFT recovers a run whose worker died.
// REVIEW -> DRAFT reopens a run for corrections.
var runTransitions = map[RunStatus][]RunStatus{
	RunStatusDraft:     {RunStatusComputing, RunStatusCancelled},
	RunStatusComputing: {RunStatusReview, RunStatusCancelled, RunStatusDraft},
	RunStatusReview:    {RunStatusApproved, RunStatusCancelled, RunStatusDraft},
	RunStatusApproved:  {RunStatusReleased},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to RunStatus) bool {
	for _, next := range runTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowsRecompute reports whether payslips of a run in this status may be rewritten.
func (s RunStatus) AllowsRecompute() bool {
	return s == RunStatusDraft || s == RunStatusComputing
}

// IsLocked reports whether payslips of a run in this status are frozen.
func (s RunStatus) IsLocked() bool {
	return s == RunStatusApproved || s == RunStatusReleased
}

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusReleased || s == RunStatusCancelled
}
