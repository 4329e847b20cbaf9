package services

import (
	"fmt"
	"time"

	"subsidy-crm/crm-service/models"

	"github.com/google/uuid"
)

// AutomationEngine keeps task, milestone and project status fields consistent
// with the underlying facts and drives forward stage progression. Every
// function operates on the loaded aggregate in place; the caller persists.
type AutomationEngine struct{}

func NewAutomationEngine() *AutomationEngine {
	return &AutomationEngine{}
}

func newTimelineEntry(entryType, message, actor string, at time.Time) models.TimelineEntry {
	return models.TimelineEntry{
		ID:      uuid.New().String(),
		Type:    entryType,
		Message: message,
		Actor:   actor,
		At:      at,
	}
}

// ApplyGuidanceDefaults fills missing descriptions, attachment requirements
// and field defaults from the guidance table. Runs before any requirement
// check so that inferred attachment rules exist when the completion gate
// evaluates them. Returns whether anything was filled in.
func (e *AutomationEngine) ApplyGuidanceDefaults(p *models.Project) bool {
	changed := false
	for i := range p.Milestones {
		m := &p.Milestones[i]
		if m.Stage == "" {
			m.Stage = models.StageDocumentation
			changed = true
		}
		if m.Status == "" {
			m.Status = models.MilestonePending
			changed = true
		}
		if m.Description == "" {
			m.Description = LookupGuidance(m.Name, m.Stage).Text
			changed = true
		}
		for j := range m.Tasks {
			t := &m.Tasks[j]
			if t.Status == "" {
				t.Status = models.TaskPending
				changed = true
			}
			if t.Priority == "" {
				t.Priority = models.PriorityMedium
				changed = true
			}
			g := LookupGuidance(t.Name, m.Stage)
			if t.Description == "" {
				t.Description = g.Text
				changed = true
			}
			if t.RequiresAttachment == nil {
				required := g.RequiresAttachment
				t.RequiresAttachment = &required
				changed = true
			}
		}
	}
	return changed
}

// RecomputeMilestoneStatus derives the milestone status from its tasks.
// An admin-skipped milestone is left alone. The DONE timestamp is stamped on
// the first transition only, so repeated recomputes are idempotent.
func (e *AutomationEngine) RecomputeMilestoneStatus(m *models.Milestone, now time.Time) bool {
	if m.Status == models.MilestoneSkipped {
		return false
	}

	old := m.Status
	switch {
	case len(m.Tasks) == 0:
		m.Status = models.MilestonePending
		m.CompletedAt = nil
	case allTasksClosed(m.Tasks):
		m.Status = models.MilestoneDone
		if m.CompletedAt == nil {
			m.CompletedAt = &now
		}
	case anyTaskStarted(m.Tasks):
		m.Status = models.MilestoneInProgress
		m.CompletedAt = nil
	default:
		m.Status = models.MilestonePending
		m.CompletedAt = nil
	}
	return m.Status != old
}

func allTasksClosed(tasks []models.Task) bool {
	for i := range tasks {
		if !tasks[i].Status.Closed() {
			return false
		}
	}
	return true
}

func anyTaskStarted(tasks []models.Task) bool {
	for i := range tasks {
		switch tasks[i].Status {
		case models.TaskInProgress, models.TaskCompleted, models.TaskSkipped:
			return true
		}
	}
	return false
}

// AdvanceStage moves the project to the next open stage once every milestone
// at the current stage is closed, and auto-completes the project when nothing
// open remains anywhere. Locked stages (ON_HOLD, REJECTED, COMPLETED) never
// advance. Returns whether the stage changed.
func (e *AutomationEngine) AdvanceStage(p *models.Project, actor string, now time.Time) bool {
	if p.CurrentStage.Locked() {
		return false
	}

	if !e.stageClosed(p, p.CurrentStage) {
		return false
	}

	if next, ok := e.nextOpenStage(p); ok {
		e.applyStageChange(p, next, actor, now,
			newTimelineEntry(models.TimelineStageAutoAdvanced,
				fmt.Sprintf("Stage advanced from %s to %s", p.CurrentStage, next), actor, now))
		return true
	}

	if e.allMilestonesClosed(p) && p.CurrentStage != models.StageCompleted {
		e.applyStageChange(p, models.StageCompleted, actor, now,
			newTimelineEntry(models.TimelineProjectCompleted, "All milestones closed, project completed", actor, now))
		return true
	}

	return false
}

// stageClosed reports whether the stage has at least one milestone and every
// one of them is DONE or SKIPPED. A stage without milestones is not closed.
func (e *AutomationEngine) stageClosed(p *models.Project, stage models.ProjectStage) bool {
	found := false
	for i := range p.Milestones {
		if p.Milestones[i].Stage != stage {
			continue
		}
		found = true
		if !p.Milestones[i].Closed() {
			return false
		}
	}
	return found
}

// nextOpenStage scans the fixed sequence strictly after the current stage and
// picks the first one that has milestones and still holds open work.
func (e *AutomationEngine) nextOpenStage(p *models.Project) (models.ProjectStage, bool) {
	idx := p.CurrentStage.SequenceIndex()
	if idx < 0 {
		return "", false
	}
	for _, stage := range models.StageSequence[idx+1:] {
		hasMilestones := false
		for i := range p.Milestones {
			if p.Milestones[i].Stage == stage {
				hasMilestones = true
				break
			}
		}
		if hasMilestones && !e.stageClosed(p, stage) {
			return stage, true
		}
	}
	return "", false
}

func (e *AutomationEngine) allMilestonesClosed(p *models.Project) bool {
	for i := range p.Milestones {
		if !p.Milestones[i].Closed() {
			return false
		}
	}
	return true
}

func (e *AutomationEngine) applyStageChange(p *models.Project, to models.ProjectStage, actor string, now time.Time, entry models.TimelineEntry) {
	p.StageHistory = append(p.StageHistory, models.StageHistoryEntry{
		From: p.CurrentStage,
		To:   to,
		By:   actor,
		At:   now,
	})
	p.CurrentStage = to
	p.Timeline = append(p.Timeline, entry)
}

// RecomputeActivityStats rebuilds the summary counts from scratch. Pure and
// idempotent; always the last step of a sync.
func (e *AutomationEngine) RecomputeActivityStats(p *models.Project) {
	stats := models.ActivityStats{MilestoneCount: len(p.Milestones)}
	for i := range p.Milestones {
		m := &p.Milestones[i]
		stats.TaskCount += len(m.Tasks)
		for j := range m.Tasks {
			t := &m.Tasks[j]
			if t.Status == models.TaskCompleted {
				stats.CompletedTaskCount++
			}
			stats.CommentCount += len(t.Comments)
			stats.AttachmentCount += len(t.Attachments)
		}
	}
	p.ActivityStats = stats
}

// Sync is the single entry point invoked after every mutating action on a
// project. Ordering matters: guidance defaults must exist before requirement
// checks, and milestone statuses must be current before stage advancement
// evaluates closure.
func (e *AutomationEngine) Sync(p *models.Project, actor string, now time.Time) {
	e.ApplyGuidanceDefaults(p)
	for i := range p.Milestones {
		m := &p.Milestones[i]
		if e.RecomputeMilestoneStatus(m, now) && m.Status == models.MilestoneDone {
			m.Timeline = append(m.Timeline, newTimelineEntry(models.TimelineMilestoneDone,
				fmt.Sprintf("Milestone %q closed", m.Name), actor, now))
		}
	}
	e.AdvanceStage(p, actor, now)
	e.RecomputeActivityStats(p)
	p.UpdatedAt = now
}
