package services

import (
	"testing"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/utils"

	"github.com/stretchr/testify/assert"
)

func TestRequireModule(t *testing.T) {
	admin := models.Actor{Username: "boss", Role: models.RoleAdmin}
	user := models.Actor{Username: "ana", Role: models.RoleUser, Modules: []string{models.ModuleLeads, models.ModuleClients}}

	assert.NoError(t, RequireModule(admin, models.ModuleInvoices), "admins pass every module")
	assert.NoError(t, RequireModule(user, models.ModuleLeads))

	err := RequireModule(user, models.ModuleInvoices)
	assert.Error(t, err)
	assert.Equal(t, utils.KindForbidden, utils.KindOf(err))
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(models.Actor{Role: models.RoleAdmin}))

	err := RequireAdmin(models.Actor{Role: models.RoleUser})
	assert.Error(t, err)
	assert.Equal(t, utils.KindForbidden, utils.KindOf(err))
}

func TestRequireTaskExecution(t *testing.T) {
	admin := models.Actor{Username: "boss", Role: models.RoleAdmin}
	assignee := models.Actor{Username: "ana", Role: models.RoleUser}
	other := models.Actor{Username: "marko", Role: models.RoleUser}

	assigned := &models.Task{ID: "t-1", Assignee: "ana"}
	unassigned := &models.Task{ID: "t-2"}

	assert.NoError(t, RequireTaskExecution(admin, assigned))
	assert.NoError(t, RequireTaskExecution(admin, unassigned), "admins may act on unassigned tasks")
	assert.NoError(t, RequireTaskExecution(assignee, assigned))

	assert.Error(t, RequireTaskExecution(other, assigned))
	assert.Error(t, RequireTaskExecution(assignee, unassigned), "unassigned tasks block non-admins")
}
