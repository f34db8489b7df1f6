package complaints

import (
	"slices"

	"github.com/raushankrgupta/maternity-matters/models"
)

// transitions lists the statuses each status may move to.
var transitions = map[models.ComplaintStatus][]models.ComplaintStatus{
	models.StatusSubmitted: {
		models.StatusUnderReview,
		models.StatusClosed,
	},
	models.StatusUnderReview: {
		models.StatusInformationRequested,
		models.StatusLegalNoticeDrafted,
		models.StatusResolved,
		models.StatusClosed,
	},
	models.StatusInformationRequested: {
		models.StatusUnderReview,
		models.StatusClosed,
	},
	models.StatusLegalNoticeDrafted: {
		models.StatusLegalNoticeSent,
		models.StatusClosed,
	},
	models.StatusLegalNoticeSent: {
		models.StatusEmployerResponded,
		models.StatusResolved,
		models.StatusClosed,
	},
	models.StatusEmployerResponded: {
		models.StatusLegalNoticeDrafted,
		models.StatusResolved,
		models.StatusClosed,
	},
	models.StatusResolved: {
		models.StatusClosed,
	},
	models.StatusClosed: {},
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s models.ComplaintStatus) []models.ComplaintStatus {
	return slices.Clone(transitions[s])
}

// CanTransition reports whether a complaint may move from one status to another.
func CanTransition(from, to models.ComplaintStatus) bool {
	return slices.Contains(transitions[from], to)
}
