package config

import "ecosakshi/backend/internal/models"

// AllowedTransitions is the report status machine. A transition is permitted
// only if the target appears under the current status; terminal states have
// no entries. Recording additional notes under the same status is handled
// separately by the lifecycle engine and does not appear here.
var AllowedTransitions = map[models.ReportStatus][]models.ReportStatus{
	models.StatusPending:     {models.StatusVerified, models.StatusRejected},
	models.StatusVerified:    {models.StatusUnderReview, models.StatusInProgress, models.StatusRejected},
	models.StatusUnderReview: {models.StatusInProgress},
	models.StatusInProgress:  {models.StatusResolved},
}

// TransitionAllowed reports whether from -> to is a permitted status change.
func TransitionAllowed(from, to models.ReportStatus) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
