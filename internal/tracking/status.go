package tracking

import "fmt"

// Status is the pipeline stage of a tracked application. The string values
// are the external contract: adding one is backward compatible, renaming
// one is not.
type Status string

const (
	StatusNew           Status = "new"
	StatusNotInterested Status = "not_interested"
	StatusPending       Status = "pending"
	StatusApplied       Status = "applied"
	StatusInterviewing  Status = "interviewing"
	StatusOffer         Status = "offer"
	StatusRejected      Status = "rejected"
	StatusWithdrawn     Status = "withdrawn"
	StatusClosed        Status = "closed"
)

// AllStatuses lists every status in board-column order.
var AllStatuses = []Status{
	StatusNew,
	StatusNotInterested,
	StatusPending,
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
	StatusClosed,
}

// ParseStatus validates membership. Transitions between known statuses are
// never restricted; only unknown values are rejected, at the boundary.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}
