/*
status.go - Order status pipeline

PURPOSE:
  Defines the fixed fulfillment pipeline an order moves through and the
  single transition function over it. The pipeline is linear and
  forward-only; the only branch is the explicit cancel action, which may
  divert any non-terminal status to Cancelled.

PIPELINE:
  Awaiting Confirmation -> Confirmed -> Being Prepared
    -> Ready For Pickup -> Completed

  plus the Cancelled terminal branch.

REPRESENTATION:
  Internally Status is a closed enum. Storage and the API exchange the
  display string, so internal transition logic is decoupled from the
  presentation text. Unknown stored strings parse to StatusUnknown, which
  every transition leaves unchanged.

SEE ALSO:
  - ledger.go: AdvanceOrder and CancelOrder use these transitions
*/
package canteen

// Status is the fulfillment stage of an order.
type Status int

const (
	StatusUnknown Status = iota
	StatusAwaiting
	StatusConfirmed
	StatusPreparing
	StatusReady
	StatusCompleted
	StatusCancelled
)

// forwardPipeline is the fixed linear sequence of fulfillment stages.
// Cancelled is not part of it; cancellation is a branch, not a stage.
var forwardPipeline = []Status{
	StatusAwaiting,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
}

var statusDisplay = map[Status]string{
	StatusAwaiting:  "Awaiting Confirmation",
	StatusConfirmed: "Confirmed",
	StatusPreparing: "Being Prepared",
	StatusReady:     "Ready For Pickup",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
}

// Display returns the boundary text for a status. Round-trips with
// ParseStatus for every known status.
func (s Status) Display() string {
	if text, ok := statusDisplay[s]; ok {
		return text
	}
	return "Unknown"
}

// ParseStatus maps display text back to a Status. Unrecognized text maps
// to StatusUnknown rather than an error; transitions treat it as inert.
func ParseStatus(text string) Status {
	for s, display := range statusDisplay {
		if display == text {
			return s
		}
	}
	return StatusUnknown
}

// Terminal reports whether no further transitions apply.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Next returns the next stage in the forward pipeline.
//
// Next is total and side-effect free: Completed, Cancelled, and
// unrecognized statuses return themselves, so calling it repeatedly at a
// terminal stage is safe. There is no operation that moves backward or
// skips stages.
func (s Status) Next() Status {
	for i, stage := range forwardPipeline {
		if stage == s {
			if i+1 < len(forwardPipeline) {
				return forwardPipeline[i+1]
			}
			return s // Completed
		}
	}
	return s // Cancelled or unknown
}
