package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/gema-intern-api/internal/models"
)

var (
	// ErrInvalidTransition indicates the log status does not allow the requested action.
	ErrInvalidTransition = errors.New("invalid log status transition")
	// ErrTransitionForbidden indicates the actor's role may not perform the action.
	ErrTransitionForbidden = errors.New("action not permitted for role")
)

// LogAction names an edge of the log review workflow.
type LogAction string

const (
	LogActionSubmit          LogAction = "submit"
	LogActionApprove         LogAction = "approve"
	LogActionRequestRevision LogAction = "request_revision"
	LogActionValidate        LogAction = "validate"
	LogActionSendBack        LogAction = "send_back"
)

type logTransition struct {
	from     []models.LogStatus
	to       models.LogStatus
	role     string
	ownerReq bool
}

// logTransitions is the complete workflow graph. Anything not listed here is rejected,
// and nothing leaves validated.
var logTransitions = map[LogAction]logTransition{
	LogActionSubmit: {
		from:     []models.LogStatus{models.LogStatusDraft, models.LogStatusNeedsRevision},
		to:       models.LogStatusSubmitted,
		role:     RoleStudent,
		ownerReq: true,
	},
	LogActionApprove: {
		from: []models.LogStatus{models.LogStatusSubmitted},
		to:   models.LogStatusApproved,
		role: RoleMentor,
	},
	LogActionRequestRevision: {
		from: []models.LogStatus{models.LogStatusSubmitted},
		to:   models.LogStatusNeedsRevision,
		role: RoleMentor,
	},
	LogActionValidate: {
		from: []models.LogStatus{models.LogStatusApproved},
		to:   models.LogStatusValidated,
		role: RoleAdvisor,
	},
	LogActionSendBack: {
		from: []models.LogStatus{models.LogStatusApproved},
		to:   models.LogStatusSubmitted,
		role: RoleAdvisor,
	},
}

// ResolveTransition checks that actor may apply action to a log owned by ownerID in the
// current status and returns the target status.
func ResolveTransition(action LogAction, current models.LogStatus, actor Actor, ownerID uint) (models.LogStatus, error) {
	transition, ok := logTransitions[action]
	if !ok {
		return current, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}

	if !actor.Is(transition.role) {
		return current, fmt.Errorf("%w: %s requires role %s", ErrTransitionForbidden, action, transition.role)
	}

	if transition.ownerReq && actor.ID != ownerID {
		return current, fmt.Errorf("%w: only the owning student may %s this log", ErrTransitionForbidden, action)
	}

	for _, from := range transition.from {
		if from == current {
			return transition.to, nil
		}
	}

	return current, fmt.Errorf("%w: cannot %s a log in status %s", ErrInvalidTransition, action, current)
}

// AllowedActions lists the actions actor may take on a log in the given status.
func AllowedActions(current models.LogStatus, actor Actor, ownerID uint) []LogAction {
	actions := make([]LogAction, 0, 2)
	for _, action := range []LogAction{LogActionSubmit, LogActionApprove, LogActionRequestRevision, LogActionValidate, LogActionSendBack} {
		if _, err := ResolveTransition(action, current, actor, ownerID); err == nil {
			actions = append(actions, action)
		}
	}
	return actions
}
