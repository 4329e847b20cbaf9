package services

import (
	"testing"
	"time"

	"subsidy-crm/crm-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(name string, status models.TaskStatus) models.Task {
	return models.Task{ID: "task-" + name, Name: name, Status: status}
}

func milestone(name string, stage models.ProjectStage, tasks ...models.Task) models.Milestone {
	return models.Milestone{ID: "ms-" + name, Name: name, Stage: stage, Tasks: tasks}
}

func TestRecomputeMilestoneStatus(t *testing.T) {
	engine := NewAutomationEngine()
	now := time.Now()

	t.Run("zero tasks is pending", func(t *testing.T) {
		m := milestone("empty", models.StageDocumentation)
		engine.RecomputeMilestoneStatus(&m, now)
		assert.Equal(t, models.MilestonePending, m.Status)
		assert.Nil(t, m.CompletedAt)
	})

	t.Run("all tasks closed is done", func(t *testing.T) {
		m := milestone("docs", models.StageDocumentation,
			task("a", models.TaskCompleted),
			task("b", models.TaskSkipped),
		)
		changed := engine.RecomputeMilestoneStatus(&m, now)
		assert.True(t, changed)
		assert.Equal(t, models.MilestoneDone, m.Status)
		require.NotNil(t, m.CompletedAt)
	})

	t.Run("completion timestamp survives recompute", func(t *testing.T) {
		m := milestone("docs", models.StageDocumentation, task("a", models.TaskCompleted))
		engine.RecomputeMilestoneStatus(&m, now)
		first := *m.CompletedAt

		later := now.Add(time.Hour)
		changed := engine.RecomputeMilestoneStatus(&m, later)
		assert.False(t, changed)
		assert.Equal(t, first, *m.CompletedAt)
	})

	t.Run("any started task is in progress", func(t *testing.T) {
		m := milestone("docs", models.StageDocumentation,
			task("a", models.TaskInProgress),
			task("b", models.TaskPending),
		)
		engine.RecomputeMilestoneStatus(&m, now)
		assert.Equal(t, models.MilestoneInProgress, m.Status)
	})

	t.Run("closed task among pending counts as started", func(t *testing.T) {
		m := milestone("docs", models.StageDocumentation,
			task("a", models.TaskCompleted),
			task("b", models.TaskPending),
		)
		engine.RecomputeMilestoneStatus(&m, now)
		assert.Equal(t, models.MilestoneInProgress, m.Status)
	})

	t.Run("skipped milestone is left alone", func(t *testing.T) {
		m := milestone("docs", models.StageDocumentation, task("a", models.TaskCompleted))
		m.Status = models.MilestoneSkipped
		changed := engine.RecomputeMilestoneStatus(&m, now)
		assert.False(t, changed)
		assert.Equal(t, models.MilestoneSkipped, m.Status)
	})
}

func TestApplyGuidanceDefaults(t *testing.T) {
	engine := NewAutomationEngine()

	p := &models.Project{
		Milestones: []models.Milestone{
			{
				ID:   "ms-1",
				Name: "Documentation",
				Tasks: []models.Task{
					{ID: "t-1", Name: "Collect KYC Documents"},
					{ID: "t-2", Name: "Client intake call"},
				},
			},
		},
	}

	changed := engine.ApplyGuidanceDefaults(p)
	assert.True(t, changed)

	m := &p.Milestones[0]
	assert.Equal(t, models.StageDocumentation, m.Stage)
	assert.Equal(t, models.MilestonePending, m.Status)
	assert.NotEmpty(t, m.Description)

	kyc := &m.Tasks[0]
	assert.Equal(t, models.TaskPending, kyc.Status)
	assert.Equal(t, models.PriorityMedium, kyc.Priority)
	require.NotNil(t, kyc.RequiresAttachment)
	assert.True(t, *kyc.RequiresAttachment)

	call := &m.Tasks[1]
	require.NotNil(t, call.RequiresAttachment)
	assert.False(t, *call.RequiresAttachment)

	assert.False(t, engine.ApplyGuidanceDefaults(p), "second pass should find nothing to fill")
}

func TestSyncAdvancesToNextOpenStage(t *testing.T) {
	engine := NewAutomationEngine()
	now := time.Now()

	p := &models.Project{
		CurrentStage: models.StageDocumentation,
		Milestones: []models.Milestone{
			milestone("docs", models.StageDocumentation, task("a", models.TaskCompleted)),
			milestone("filing", models.StageApplicationFiled, task("b", models.TaskPending)),
		},
	}

	engine.Sync(p, "system", now)

	assert.Equal(t, models.StageApplicationFiled, p.CurrentStage)
	require.Len(t, p.StageHistory, 1)
	assert.Equal(t, models.StageDocumentation, p.StageHistory[0].From)
	assert.Equal(t, models.StageApplicationFiled, p.StageHistory[0].To)

	var autoAdvanced bool
	for _, entry := range p.Timeline {
		if entry.Type == models.TimelineStageAutoAdvanced {
			autoAdvanced = true
		}
	}
	assert.True(t, autoAdvanced)
}

func TestSyncSkipsStagesWithoutMilestones(t *testing.T) {
	engine := NewAutomationEngine()
	now := time.Now()

	p := &models.Project{
		CurrentStage: models.StageDocumentation,
		Milestones: []models.Milestone{
			milestone("docs", models.StageDocumentation, task("a", models.TaskCompleted)),
			milestone("scrutiny", models.StageScrutiny, task("b", models.TaskPending)),
		},
	}

	engine.Sync(p, "system", now)
	assert.Equal(t, models.StageScrutiny, p.CurrentStage)
}

func TestSyncAutoCompletesProject(t *testing.T) {
	engine := NewAutomationEngine()
	now := time.Now()

	p := &models.Project{
		CurrentStage: models.StageDisbursed,
		Milestones: []models.Milestone{
			milestone("docs", models.StageDocumentation, task("a", models.TaskCompleted)),
			milestone("payout", models.StageDisbursed, task("b", models.TaskCompleted)),
		},
	}

	engine.Sync(p, "system", now)

	assert.Equal(t, models.StageCompleted, p.CurrentStage)
	var completed bool
	for _, entry := range p.Timeline {
		if entry.Type == models.TimelineProjectCompleted {
			completed = true
		}
	}
	assert.True(t, completed)
}

func TestSyncNeverTouchesLockedStages(t *testing.T) {
	engine := NewAutomationEngine()
	now := time.Now()

	for _, stage := range []models.ProjectStage{models.StageOnHold, models.StageRejected, models.StageCompleted} {
		p := &models.Project{
			CurrentStage: stage,
			Milestones: []models.Milestone{
				milestone("docs", models.StageDocumentation, task("a", models.TaskCompleted)),
			},
		}
		engine.Sync(p, "system", now)
		assert.Equal(t, stage, p.CurrentStage)
		assert.Empty(t, p.StageHistory)
	}
}

func TestSyncDoesNotAdvanceWhileStageOpen(t *testing.T) {
	engine := NewAutomationEngine()
	now := time.Now()

	p := &models.Project{
		CurrentStage: models.StageDocumentation,
		Milestones: []models.Milestone{
			milestone("docs", models.StageDocumentation, task("a", models.TaskPending)),
			milestone("filing", models.StageApplicationFiled, task("b", models.TaskPending)),
		},
	}

	engine.Sync(p, "system", now)
	assert.Equal(t, models.StageDocumentation, p.CurrentStage)
}

func TestSyncIsIdempotent(t *testing.T) {
	engine := NewAutomationEngine()
	now := time.Now()

	p := &models.Project{
		CurrentStage: models.StageDocumentation,
		Milestones: []models.Milestone{
			milestone("docs", models.StageDocumentation, task("a", models.TaskCompleted)),
			milestone("filing", models.StageApplicationFiled, task("b", models.TaskPending)),
		},
	}

	engine.Sync(p, "system", now)
	stage := p.CurrentStage
	history := len(p.StageHistory)
	timeline := len(p.Timeline)

	engine.Sync(p, "system", now)
	assert.Equal(t, stage, p.CurrentStage)
	assert.Len(t, p.StageHistory, history)
	assert.Len(t, p.Timeline, timeline)
}

func TestRecomputeActivityStats(t *testing.T) {
	engine := NewAutomationEngine()

	done := task("a", models.TaskCompleted)
	done.Comments = []models.Comment{{ID: "c-1"}, {ID: "c-2"}}
	done.Attachments = []models.Attachment{{ID: "att-1"}}

	p := &models.Project{
		Milestones: []models.Milestone{
			milestone("docs", models.StageDocumentation, done, task("b", models.TaskPending)),
			milestone("filing", models.StageApplicationFiled),
		},
	}

	engine.RecomputeActivityStats(p)

	assert.Equal(t, models.ActivityStats{
		MilestoneCount:     2,
		TaskCount:          2,
		CompletedTaskCount: 1,
		CommentCount:       2,
		AttachmentCount:    1,
	}, p.ActivityStats)
}
