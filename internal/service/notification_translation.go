package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/models"
)

// NotifyTransition turns a committed transition into a fan-out. The actor is never a recipient.
func (s *NotificationService) NotifyTransition(ctx context.Context, event models.TransitionEvent) {
	if s == nil || event.Project == nil {
		return
	}
	req := translateTransition(event)
	if req == nil {
		return
	}
	s.Notify(ctx, *req)
}

func translateTransition(event models.TransitionEvent) *NotificationRequest {
	project := event.Project
	req := NotificationRequest{
		RelatedProjectID: project.ID,
		Metadata: map[string]interface{}{
			"fromStatus": string(event.FromStatus),
			"toStatus":   string(event.ToStatus),
			"phase":      event.ToStatus.Phase(),
			"actorId":    event.ActorID,
		},
	}
	title := strings.TrimSpace(project.Title)
	if title == "" {
		title = project.ID
	}

	var recipients []string
	switch {
	case event.ToStatus == models.StatusRevisionRequired:
		recipients = append(recipients, project.MemberIDs...)
		req.Kind = models.NotificationRevisionRequested
		req.Title = "Revision requested"
		req.Message = fmt.Sprintf("Revisions were requested on %q.", title)
		if comment := strings.TrimSpace(event.Comment); comment != "" {
			req.Message += " Feedback: " + comment
		}
	case IsDefenseStatus(event.ToStatus):
		recipients = participants(project)
		req.Kind = models.NotificationDefenseScheduled
		req.Title = "Defense scheduled"
		req.Message = fmt.Sprintf("%q moved to %s.", title, humanizeStatus(event.ToStatus))
	case IsReviewStatus(event.ToStatus):
		if project.AdviserID != nil {
			recipients = append(recipients, *project.AdviserID)
		}
		req.Kind = models.NotificationReviewRequested
		req.Title = "Review requested"
		req.Message = fmt.Sprintf("%q is waiting for your review (%s).", title, humanizeStatus(event.ToStatus))
	default:
		recipients = participants(project)
		req.Kind = models.NotificationStatusChanged
		req.Title = "Project status updated"
		req.Message = fmt.Sprintf("%q moved from %s to %s.", title, humanizeStatus(event.FromStatus), humanizeStatus(event.ToStatus))
	}

	req.RecipientIDs = lo.Without(lo.Uniq(recipients), event.ActorID)
	if len(req.RecipientIDs) == 0 {
		return nil
	}
	return &req
}

func humanizeStatus(status models.ProjectStatus) string {
	return strings.ToLower(strings.ReplaceAll(string(status), "_", " "))
}
