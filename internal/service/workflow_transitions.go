package service

import (
	"sort"

	"github.com/samber/lo"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
)

type roleSet []models.UserRole

var (
	studentOnly       = roleSet{models.RoleStudent}
	adviserOnly       = roleSet{models.RoleAdviser}
	coordinatorOnly   = roleSet{models.RoleCoordinator}
	adviserOrCoord    = roleSet{models.RoleAdviser, models.RoleCoordinator}
	panelistOrCoord   = roleSet{models.RolePanelist, models.RoleCoordinator}
	adviserOrPanelist = roleSet{models.RoleAdviser, models.RolePanelist}
)

// transitionTable is the only definition of legal moves: from -> to -> permitted roles.
var transitionTable = map[models.ProjectStatus]map[models.ProjectStatus]roleSet{
	models.StatusProposed: {
		models.StatusAdviserReview: studentOnly,
	},
	models.StatusAdviserReview: {
		models.StatusApprovedForDefense: adviserOrCoord,
		models.StatusRevisionRequired:   adviserOrCoord,
	},
	models.StatusApprovedForDefense: {
		models.StatusDefended:         panelistOrCoord,
		models.StatusRevisionRequired: panelistOrCoord,
	},
	models.StatusDefended: {
		models.StatusArchived: coordinatorOnly,
	},

	models.StatusTopicSelection: {
		models.StatusTopicProposed: studentOnly,
	},
	models.StatusTopicProposed: {
		models.StatusTopicApproved:  adviserOrCoord,
		models.StatusTopicSelection: adviserOrCoord,
		models.StatusProjectReset:   coordinatorOnly,
	},
	models.StatusTopicApproved: {
		models.StatusChapter1Draft: studentOnly,
		models.StatusProjectReset:  coordinatorOnly,
	},
	models.StatusChapter1Draft: {
		models.StatusChapter1Review: studentOnly,
		models.StatusProjectReset:   coordinatorOnly,
	},
	models.StatusChapter1Review: {
		models.StatusChapter2Draft:    adviserOnly,
		models.StatusRevisionRequired: adviserOnly,
	},
	models.StatusChapter2Draft: {
		models.StatusChapter2Review: studentOnly,
	},
	models.StatusChapter2Review: {
		models.StatusChapter3Draft:    adviserOnly,
		models.StatusRevisionRequired: adviserOnly,
	},
	models.StatusChapter3Draft: {
		models.StatusChapter3Review: studentOnly,
	},
	models.StatusChapter3Review: {
		models.StatusProposalDefenseScheduled: adviserOrCoord,
		models.StatusRevisionRequired:         adviserOnly,
	},
	models.StatusProposalDefenseScheduled: {
		models.StatusProposalDefended: panelistOrCoord,
		models.StatusRevisionRequired: panelistOrCoord,
	},
	models.StatusProposalDefended: {
		models.StatusImplementation: studentOnly,
	},
	models.StatusImplementation: {
		models.StatusPrototypeReview: studentOnly,
	},
	models.StatusPrototypeReview: {
		models.StatusChapter4Draft:    adviserOnly,
		models.StatusRevisionRequired: adviserOnly,
	},
	models.StatusChapter4Draft: {
		models.StatusChapter4Review: studentOnly,
	},
	models.StatusChapter4Review: {
		models.StatusChapter5Draft:    adviserOnly,
		models.StatusRevisionRequired: adviserOnly,
	},
	models.StatusChapter5Draft: {
		models.StatusChapter5Review: studentOnly,
	},
	models.StatusChapter5Review: {
		models.StatusFinalDefenseScheduled: adviserOrCoord,
		models.StatusRevisionRequired:      adviserOnly,
	},
	models.StatusFinalDefenseScheduled: {
		models.StatusFinalDefended:    panelistOrCoord,
		models.StatusRevisionRequired: panelistOrCoord,
	},
	models.StatusFinalDefended: {
		models.StatusFinalRevision: studentOnly,
	},
	models.StatusFinalRevision: {
		models.StatusFinalManuscriptReview: studentOnly,
	},
	models.StatusFinalManuscriptReview: {
		models.StatusCompleted:     adviserOrCoord,
		models.StatusFinalRevision: adviserOrPanelist,
	},
	models.StatusCompleted: {
		models.StatusArchived: coordinatorOnly,
	},

	models.StatusRevisionRequired: {
		models.StatusAdviserReview:            studentOnly,
		models.StatusChapter1Review:           studentOnly,
		models.StatusChapter2Review:           studentOnly,
		models.StatusChapter3Review:           studentOnly,
		models.StatusPrototypeReview:          studentOnly,
		models.StatusChapter4Review:           studentOnly,
		models.StatusChapter5Review:           studentOnly,
		models.StatusProposalDefenseScheduled: coordinatorOnly,
		models.StatusFinalDefenseScheduled:    coordinatorOnly,
		models.StatusProjectReset:             coordinatorOnly,
	},
	models.StatusProjectReset: {
		models.StatusTopicSelection: coordinatorOnly,
	},
}

var reviewStatuses = map[models.ProjectStatus]struct{}{
	models.StatusAdviserReview:            {},
	models.StatusChapter1Review:           {},
	models.StatusChapter2Review:           {},
	models.StatusChapter3Review:           {},
	models.StatusPrototypeReview:          {},
	models.StatusChapter4Review:           {},
	models.StatusChapter5Review:           {},
	models.StatusFinalManuscriptReview:    {},
	models.StatusProposalDefenseScheduled: {},
	models.StatusFinalDefenseScheduled:    {},
}

// revisionReturns bounds where a project may go once a revision is addressed, keyed by
// the status it was sent back from. A failed defense returns to the chapter or review that
// led into it, or is rescheduled by a coordinator.
var revisionReturns = map[models.ProjectStatus][]models.ProjectStatus{
	models.StatusAdviserReview:            {models.StatusAdviserReview},
	models.StatusApprovedForDefense:       {models.StatusAdviserReview},
	models.StatusChapter1Review:           {models.StatusChapter1Review},
	models.StatusChapter2Review:           {models.StatusChapter2Review},
	models.StatusChapter3Review:           {models.StatusChapter3Review},
	models.StatusProposalDefenseScheduled: {models.StatusChapter3Review, models.StatusProposalDefenseScheduled},
	models.StatusPrototypeReview:          {models.StatusPrototypeReview},
	models.StatusChapter4Review:           {models.StatusChapter4Review},
	models.StatusChapter5Review:           {models.StatusChapter5Review},
	models.StatusFinalDefenseScheduled:    {models.StatusChapter5Review, models.StatusFinalDefenseScheduled},
}

// RevisionOrigin returns the status the project was last sent back from.
func RevisionOrigin(history models.StatusHistory) (models.ProjectStatus, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ToStatus == models.StatusRevisionRequired {
			return history[i].FromStatus, true
		}
	}
	return "", false
}

// ReturnsFromRevision reports whether a project in REVISION_REQUIRED may move to next
// given its history. Resets are always open; every other move must go back to where
// the revision was requested.
func ReturnsFromRevision(history models.StatusHistory, next models.ProjectStatus) bool {
	if next == models.StatusProjectReset {
		return true
	}
	origin, ok := RevisionOrigin(history)
	if !ok {
		return false
	}
	return lo.Contains(revisionReturns[origin], next)
}

// AllowedRoles returns the roles permitted to move from -> to, and whether the edge exists.
func AllowedRoles(from, to models.ProjectStatus) ([]models.UserRole, bool) {
	edges, ok := transitionTable[from]
	if !ok {
		return nil, false
	}
	roles, ok := edges[to]
	if !ok {
		return nil, false
	}
	return append([]models.UserRole(nil), roles...), true
}

// NextStatuses lists the targets reachable from status by role, sorted for stable output.
// An empty role returns every target regardless of who may take it.
func NextStatuses(from models.ProjectStatus, role models.UserRole) []models.ProjectStatus {
	edges := transitionTable[from]
	out := make([]models.ProjectStatus, 0, len(edges))
	for to, roles := range edges {
		if role == "" || lo.Contains(roles, role) {
			out = append(out, to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsReviewStatus reports whether entering status means a revision has been addressed.
func IsReviewStatus(status models.ProjectStatus) bool {
	_, ok := reviewStatuses[status]
	return ok
}

// IsDefenseStatus reports whether status schedules or approves a defense.
func IsDefenseStatus(status models.ProjectStatus) bool {
	switch status {
	case models.StatusProposalDefenseScheduled, models.StatusFinalDefenseScheduled, models.StatusApprovedForDefense:
		return true
	}
	return false
}
