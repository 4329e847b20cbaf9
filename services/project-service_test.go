package services

import (
	"testing"
	"time"

	"subsidy-crm/crm-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func timelineCount(entries []models.TimelineEntry, entryType string) int {
	n := 0
	for _, e := range entries {
		if e.Type == entryType {
			n++
		}
	}
	return n
}

func TestCompleteTaskAttachmentGate(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()

	build := func() *models.Project {
		pending := task("Collect KYC Documents", models.TaskPending)
		pending.RequiresAttachment = boolPtr(true)
		return &models.Project{
			CurrentStage: models.StageDocumentation,
			Milestones: []models.Milestone{
				milestone("docs", models.StageDocumentation, pending),
			},
		}
	}

	t.Run("zero attachments block completion", func(t *testing.T) {
		p := build()
		err := completeTask(p, admin, "ms-docs", "task-Collect KYC Documents", now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires an attachment")
		assert.Equal(t, models.TaskPending, p.Milestones[0].Tasks[0].Status)
	})

	t.Run("one attachment lets completion through", func(t *testing.T) {
		p := build()
		p.Milestones[0].Tasks[0].Attachments = []models.Attachment{
			{ID: "att-1", FileName: "kyc.pdf", Ref: "kyc-ref", UploadedBy: "ana", At: now},
		}

		require.NoError(t, completeTask(p, admin, "ms-docs", "task-Collect KYC Documents", now))

		done := p.Milestones[0].Tasks[0]
		assert.Equal(t, models.TaskCompleted, done.Status)
		require.NotNil(t, done.CompletedAt)
		assert.Equal(t, now, *done.CompletedAt)
	})

	t.Run("no requirement means no gate", func(t *testing.T) {
		p := build()
		p.Milestones[0].Tasks[0].RequiresAttachment = boolPtr(false)
		require.NoError(t, completeTask(p, admin, "ms-docs", "task-Collect KYC Documents", now))
		assert.Equal(t, models.TaskCompleted, p.Milestones[0].Tasks[0].Status)
	})
}

func TestCompleteTaskRecordsAllThreeTimelines(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()

	open := task("Client intake call", models.TaskPending)
	open.RequiresAttachment = boolPtr(false)
	p := &models.Project{
		CurrentStage: models.StageDocumentation,
		Milestones: []models.Milestone{
			milestone("docs", models.StageDocumentation, open),
		},
	}

	require.NoError(t, completeTask(p, admin, "ms-docs", "task-Client intake call", now))

	m := &p.Milestones[0]
	assert.Equal(t, 1, timelineCount(m.Tasks[0].Timeline, models.TimelineTaskCompleted), "task timeline")
	assert.Equal(t, 1, timelineCount(m.Timeline, models.TimelineTaskCompleted), "milestone timeline")
	assert.Equal(t, 1, timelineCount(p.Timeline, models.TimelineTaskCompleted), "project timeline")
}

func TestCompleteTaskRejectsClosedTasks(t *testing.T) {
	admin := models.Actor{Username: "ana", Role: models.RoleAdmin}
	now := time.Now()

	t.Run("skipped task", func(t *testing.T) {
		skipped := task("Site survey", models.TaskSkipped)
		skipped.RequiresAttachment = boolPtr(false)
		p := &models.Project{
			Milestones: []models.Milestone{milestone("docs", models.StageDocumentation, skipped)},
		}
		err := completeTask(p, admin, "ms-docs", "task-Site survey", now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "skipped")
	})

	t.Run("already completed task", func(t *testing.T) {
		done := task("Site survey", models.TaskCompleted)
		done.RequiresAttachment = boolPtr(false)
		p := &models.Project{
			Milestones: []models.Milestone{milestone("docs", models.StageDocumentation, done)},
		}
		err := completeTask(p, admin, "ms-docs", "task-Site survey", now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already completed")
	})

	t.Run("unknown task", func(t *testing.T) {
		p := &models.Project{
			Milestones: []models.Milestone{milestone("docs", models.StageDocumentation)},
		}
		err := completeTask(p, admin, "ms-docs", "task-missing", now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestCompleteTaskEnforcesAssignee(t *testing.T) {
	now := time.Now()

	build := func(assignee string) *models.Project {
		open := task("Draft application", models.TaskPending)
		open.RequiresAttachment = boolPtr(false)
		open.Assignee = assignee
		return &models.Project{
			Milestones: []models.Milestone{milestone("filing", models.StageApplicationFiled, open)},
		}
	}

	user := models.Actor{Username: "marko", Role: models.RoleUser, Modules: []string{models.ModuleProjects}}

	t.Run("assignee may complete", func(t *testing.T) {
		p := build("marko")
		require.NoError(t, completeTask(p, user, "ms-filing", "task-Draft application", now))
	})

	t.Run("someone else may not", func(t *testing.T) {
		p := build("jelena")
		err := completeTask(p, user, "ms-filing", "task-Draft application", now)
		require.Error(t, err)
	})

	t.Run("unassigned blocks non-admins", func(t *testing.T) {
		p := build("")
		err := completeTask(p, user, "ms-filing", "task-Draft application", now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unassigned")
	})
}
