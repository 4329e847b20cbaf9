package services

import (
	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/utils"
)

// RequireModule gates a request on the actor's module allowlist.
func RequireModule(actor models.Actor, module string) error {
	if !actor.CanAccessModule(module) {
		return utils.Forbidden("access to the %s module is not allowed for this user", module)
	}
	return nil
}

// RequireAdmin gates admin-only operations.
func RequireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return utils.Forbidden("this operation requires the ADMIN role")
	}
	return nil
}

// RequireTaskExecution enforces the task execution rule: admins may act on any
// task; everyone else only on a task where they are the recorded assignee, and
// an unassigned task blocks non-admins outright.
func RequireTaskExecution(actor models.Actor, task *models.Task) error {
	if actor.IsAdmin() {
		return nil
	}
	if task.Assignee == "" {
		return utils.Forbidden("task is unassigned; only an admin can act on it")
	}
	if task.Assignee != actor.Username {
		return utils.Forbidden("only the assigned user or an admin can act on this task")
	}
	return nil
}
