package service

import (
	"github.com/samber/lo"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
)

// CanAct reports whether an actor holding role may touch project. Coordinators are
// gated by role alone; everyone else must be assigned to the project in that role.
func CanAct(role models.UserRole, actorID string, project *models.Project) bool {
	if project == nil || actorID == "" {
		return false
	}
	switch role {
	case models.RoleCoordinator:
		return true
	case models.RoleAdviser:
		return project.AdviserID != nil && *project.AdviserID == actorID
	case models.RolePanelist:
		return lo.Contains(project.PanelistIDs, actorID)
	case models.RoleStudent:
		return IsMember(project, actorID)
	default:
		return false
	}
}

// IsMember reports whether actorID belongs to the authoring team.
func IsMember(project *models.Project, actorID string) bool {
	return project != nil && actorID != "" && lo.Contains(project.MemberIDs, actorID)
}

// participants returns every user attached to the project, without duplicates.
func participants(project *models.Project) []string {
	ids := make([]string, 0, len(project.MemberIDs)+len(project.PanelistIDs)+1)
	ids = append(ids, project.MemberIDs...)
	if project.AdviserID != nil {
		ids = append(ids, *project.AdviserID)
	}
	ids = append(ids, project.PanelistIDs...)
	return lo.Uniq(ids)
}
