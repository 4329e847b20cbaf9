package services

import (
	"context"
	"fmt"
	"time"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ProjectService struct {
	ProjectsCollection *mongo.Collection
	ClientsCollection  *mongo.Collection
	UsersCollection    *mongo.Collection
	Counters           *CounterService
	Automation         *AutomationEngine
	Dispatcher         *SideEffectDispatcher
	// Strict enables the optimistic version check on aggregate saves.
	Strict bool
}

func NewProjectService(
	projectsCollection, clientsCollection, usersCollection *mongo.Collection,
	counters *CounterService,
	automation *AutomationEngine,
	dispatcher *SideEffectDispatcher,
	strict bool,
) *ProjectService {
	return &ProjectService{
		ProjectsCollection: projectsCollection,
		ClientsCollection:  clientsCollection,
		UsersCollection:    usersCollection,
		Counters:           counters,
		Automation:         automation,
		Dispatcher:         dispatcher,
		Strict:             strict,
	}
}

type CreateProjectInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	ClientID    string              `json:"clientId"`
	LeadID      string              `json:"leadId"`
	Milestones  []MilestoneInput    `json:"milestones"`
}

type MilestoneInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Stage       models.ProjectStage `json:"stage"`
	StartDate   *time.Time          `json:"startDate"`
	DueDate     *time.Time          `json:"dueDate"`
	Tasks       []TaskInput         `json:"tasks"`
}

type TaskInput struct {
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Assignee           string              `json:"assignee"`
	Deadline           *time.Time          `json:"deadline"`
	Priority           models.TaskPriority `json:"priority"`
	RequiresAttachment *bool               `json:"requiresAttachment"`
}

// CreateProject creates the aggregate, assigns the PRJ sequence code and runs
// the automation sync before the first insert.
func (s *ProjectService) CreateProject(ctx context.Context, actor models.Actor, input CreateProjectInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, utils.Validation("project name is required")
	}
	clientID, err := primitive.ObjectIDFromHex(input.ClientID)
	if err != nil {
		return nil, utils.Validation("invalid client ID format")
	}
	var client models.Client
	if err := s.ClientsCollection.FindOne(ctx, bson.M{"_id": clientID}).Decode(&client); err != nil {
		return nil, utils.NotFound("client not found")
	}

	seq, err := s.Counters.Next(ctx, SeqProjects)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	project := &models.Project{
		ID:           primitive.NewObjectID(),
		Code:         FormatSequence("PRJ", seq),
		Name:         input.Name,
		Description:  input.Description,
		ClientID:     clientID,
		CurrentStage: models.StageDocumentation,
		Milestones:   buildMilestones(input.Milestones),
		Timeline: []models.TimelineEntry{
			newTimelineEntry(models.TimelineCreated, fmt.Sprintf("Project created for client %s", client.Name), actor.Username, now),
		},
		CreatedAt: now,
	}
	if input.LeadID != "" {
		leadID, err := primitive.ObjectIDFromHex(input.LeadID)
		if err != nil {
			return nil, utils.Validation("invalid lead ID format")
		}
		project.LeadID = &leadID
	}

	s.Automation.Sync(project, actor.Username, now)

	if _, err := s.ProjectsCollection.InsertOne(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %v", err)
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "PROJECT_CREATED", EntityType: "project", EntityID: project.ID.Hex(), Actor: actor.Username, After: project},
		&NotificationInput{
			Type:               "PROJECT_CREATED",
			Title:              "New project",
			Message:            fmt.Sprintf("Project %s (%s) was created", project.Name, project.Code),
			ActorID:            actor.ID,
			ShowInLiveActivity: true,
		},
	)
	return project, nil
}

func buildMilestones(inputs []MilestoneInput) []models.Milestone {
	milestones := make([]models.Milestone, 0, len(inputs))
	for _, mi := range inputs {
		m := models.Milestone{
			ID:          uuid.New().String(),
			Name:        mi.Name,
			Description: mi.Description,
			Stage:       mi.Stage,
			Status:      models.MilestonePending,
			StartDate:   mi.StartDate,
			DueDate:     mi.DueDate,
		}
		for _, ti := range mi.Tasks {
			m.Tasks = append(m.Tasks, buildTask(ti))
		}
		milestones = append(milestones, m)
	}
	return milestones
}

func buildTask(ti TaskInput) models.Task {
	return models.Task{
		ID:                 uuid.New().String(),
		Name:               ti.Name,
		Description:        ti.Description,
		Assignee:           ti.Assignee,
		Deadline:           ti.Deadline,
		Priority:           ti.Priority,
		RequiresAttachment: ti.RequiresAttachment,
		Status:             models.TaskPending,
	}
}

// GetProjectByID loads one aggregate.
func (s *ProjectService) GetProjectByID(ctx context.Context, projectID string) (*models.Project, error) {
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, utils.Validation("invalid project ID format")
	}
	var project models.Project
	err = s.ProjectsCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&project)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFound("project not found")
		}
		return nil, fmt.Errorf("error fetching project: %v", err)
	}
	return &project, nil
}

// GetAllProjects returns every project.
func (s *ProjectService) GetAllProjects(ctx context.Context) ([]models.Project, error) {
	cursor, err := s.ProjectsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve projects: %v", err)
	}
	defer cursor.Close(ctx)

	var projects []models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %v", err)
	}
	return projects, nil
}

// save persists the whole aggregate. In strict mode the version the document
// was loaded with must still match, otherwise the write surfaces a conflict.
func (s *ProjectService) save(ctx context.Context, project *models.Project) error {
	filter := bson.M{"_id": project.ID}
	if s.Strict {
		filter["version"] = project.Version
	}
	project.Version++

	result, err := s.ProjectsCollection.ReplaceOne(ctx, filter, project)
	if err != nil {
		project.Version--
		return fmt.Errorf("failed to save project: %v", err)
	}
	if result.MatchedCount == 0 {
		project.Version--
		if s.Strict {
			return utils.Conflict("project was modified concurrently, reload and retry")
		}
		return utils.NotFound("project not found")
	}
	return nil
}

// mutate loads the aggregate, applies fn, runs the automation sync and saves.
// Every project mutation goes through here so the sync contract holds.
func (s *ProjectService) mutate(ctx context.Context, projectID string, actor models.Actor, fn func(p *models.Project, now time.Time) error) (*models.Project, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := fn(project, now); err != nil {
		return nil, err
	}

	s.Automation.Sync(project, actor.Username, now)
	if err := s.save(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// ChangeStage is the manual stage edit: it may move the stage anywhere,
// bypassing the forward-only rule automation follows.
func (s *ProjectService) ChangeStage(ctx context.Context, actor models.Actor, projectID string, to models.ProjectStage) (*models.Project, error) {
	if !models.IsValidStage(to) {
		return nil, utils.Validation("unknown project stage: %s", to)
	}
	project, err := s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		if p.CurrentStage == to {
			return nil
		}
		p.StageHistory = append(p.StageHistory, models.StageHistoryEntry{From: p.CurrentStage, To: to, By: actor.Username, At: now})
		p.Timeline = append(p.Timeline, newTimelineEntry(models.TimelineStageChanged,
			fmt.Sprintf("Stage changed from %s to %s", p.CurrentStage, to), actor.Username, now))
		p.CurrentStage = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "PROJECT_STAGE_CHANGED", EntityType: "project", EntityID: project.ID.Hex(), Actor: actor.Username, After: project.CurrentStage},
		&NotificationInput{
			Type:               "PROJECT_STAGE_CHANGED",
			Title:              "Project stage changed",
			Message:            fmt.Sprintf("Project %s moved to %s", project.Code, project.CurrentStage),
			ActorID:            actor.ID,
			ShowInLiveActivity: true,
		},
	)
	return project, nil
}

// AddMilestone appends a milestone to the aggregate.
func (s *ProjectService) AddMilestone(ctx context.Context, actor models.Actor, projectID string, input MilestoneInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, utils.Validation("milestone name is required")
	}
	if input.Stage != "" && !models.IsValidStage(input.Stage) {
		return nil, utils.Validation("unknown project stage: %s", input.Stage)
	}
	return s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		p.Milestones = append(p.Milestones, buildMilestones([]MilestoneInput{input})...)
		return nil
	})
}

type MilestonePatch struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Stage       *models.ProjectStage `json:"stage"`
	StartDate   *time.Time           `json:"startDate"`
	DueDate     *time.Time           `json:"dueDate"`
}

// UpdateMilestone edits milestone fields. Status is derived and not
// patchable here.
func (s *ProjectService) UpdateMilestone(ctx context.Context, actor models.Actor, projectID, milestoneID string, patch MilestonePatch) (*models.Project, error) {
	return s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		m := p.FindMilestone(milestoneID)
		if m == nil {
			return utils.NotFound("milestone not found")
		}
		if patch.Name != nil && *patch.Name != "" {
			m.Name = *patch.Name
		}
		if patch.Description != nil {
			m.Description = *patch.Description
		}
		if patch.Stage != nil {
			if !models.IsValidStage(*patch.Stage) {
				return utils.Validation("unknown project stage: %s", *patch.Stage)
			}
			m.Stage = *patch.Stage
		}
		if patch.StartDate != nil {
			m.StartDate = patch.StartDate
		}
		if patch.DueDate != nil {
			m.DueDate = patch.DueDate
		}
		return nil
	})
}

// SkipMilestone marks a milestone SKIPPED. Admin only; the rollup preserves
// the skip afterwards.
func (s *ProjectService) SkipMilestone(ctx context.Context, actor models.Actor, projectID, milestoneID string) (*models.Project, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		m := p.FindMilestone(milestoneID)
		if m == nil {
			return utils.NotFound("milestone not found")
		}
		if m.Status == models.MilestoneDone {
			return utils.Conflict("a completed milestone cannot be skipped")
		}
		m.Status = models.MilestoneSkipped
		m.CompletedAt = nil
		m.Timeline = append(m.Timeline, newTimelineEntry(models.TimelineStatusChanged,
			fmt.Sprintf("Milestone %q skipped", m.Name), actor.Username, now))
		return nil
	})
}

// AddTask appends a task to a milestone.
func (s *ProjectService) AddTask(ctx context.Context, actor models.Actor, projectID, milestoneID string, input TaskInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, utils.Validation("task name is required")
	}
	return s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		m := p.FindMilestone(milestoneID)
		if m == nil {
			return utils.NotFound("milestone not found")
		}
		m.Tasks = append(m.Tasks, buildTask(input))
		return nil
	})
}

type TaskPatch struct {
	Name               *string              `json:"name"`
	Description        *string              `json:"description"`
	Assignee           *string              `json:"assignee"`
	Deadline           *time.Time           `json:"deadline"`
	Priority           *models.TaskPriority `json:"priority"`
	RequiresAttachment *bool                `json:"requiresAttachment"`
	Status             *models.TaskStatus   `json:"status"`
}

// UpdateTask edits task fields. COMPLETED is reachable only through
// CompleteTask; SKIPPED only by an admin.
func (s *ProjectService) UpdateTask(ctx context.Context, actor models.Actor, projectID, milestoneID, taskID string, patch TaskPatch) (*models.Project, error) {
	return s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		_, t := p.FindTask(milestoneID, taskID)
		if t == nil {
			return utils.NotFound("task not found")
		}
		if patch.Name != nil && *patch.Name != "" {
			t.Name = *patch.Name
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Assignee != nil {
			t.Assignee = *patch.Assignee
		}
		if patch.Deadline != nil {
			t.Deadline = patch.Deadline
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.RequiresAttachment != nil {
			t.RequiresAttachment = patch.RequiresAttachment
		}
		if patch.Status != nil {
			return s.applyTaskStatus(actor, t, *patch.Status, now)
		}
		return nil
	})
}

// applyTaskStatus enforces the status transition rules for direct edits.
func (s *ProjectService) applyTaskStatus(actor models.Actor, t *models.Task, to models.TaskStatus, now time.Time) error {
	switch to {
	case models.TaskPending, models.TaskInProgress:
		if err := RequireTaskExecution(actor, t); err != nil {
			return err
		}
		if t.Status == models.TaskCompleted || t.Status == models.TaskSkipped {
			return utils.Conflict("a closed task cannot be reopened")
		}
		t.Status = to
	case models.TaskSkipped:
		if !actor.IsAdmin() {
			return utils.Forbidden("only an admin can skip a task")
		}
		t.Status = models.TaskSkipped
		t.CompletedAt = nil
	case models.TaskCompleted:
		return utils.Validation("use the complete operation to finish a task")
	default:
		return utils.Validation("unknown task status: %s", to)
	}
	return nil
}

// completeTask is the completion gate: rejects skipped tasks and tasks whose
// attachment requirement is unmet, then closes the task and records timeline
// entries at task, milestone and project level. Pure over the aggregate; the
// caller persists and syncs.
func completeTask(p *models.Project, actor models.Actor, milestoneID, taskID string, now time.Time) error {
	// Guidance defaults must exist before the requirement check below.
	NewAutomationEngine().ApplyGuidanceDefaults(p)

	m, t := p.FindTask(milestoneID, taskID)
	if t == nil {
		return utils.NotFound("task not found")
	}
	if err := RequireTaskExecution(actor, t); err != nil {
		return err
	}
	if t.Status == models.TaskSkipped {
		return utils.Conflict("a skipped task cannot be completed")
	}
	if t.Status == models.TaskCompleted {
		return utils.Conflict("task is already completed")
	}
	if t.NeedsAttachment() && len(t.Attachments) == 0 {
		return utils.Conflict("task requires an attachment before it can be completed")
	}

	t.Status = models.TaskCompleted
	t.CompletedAt = &now
	t.Timeline = append(t.Timeline, newTimelineEntry(models.TimelineTaskCompleted,
		fmt.Sprintf("Task %q completed", t.Name), actor.Username, now))
	m.Timeline = append(m.Timeline, newTimelineEntry(models.TimelineTaskCompleted,
		fmt.Sprintf("Task %q completed", t.Name), actor.Username, now))
	p.Timeline = append(p.Timeline, newTimelineEntry(models.TimelineTaskCompleted,
		fmt.Sprintf("Task %q in milestone %q completed", t.Name, m.Name), actor.Username, now))
	return nil
}

// CompleteTask applies the completion gate to the stored aggregate and lets
// the sync roll everything up.
func (s *ProjectService) CompleteTask(ctx context.Context, actor models.Actor, projectID, milestoneID, taskID string) (*models.Project, error) {
	project, err := s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		return completeTask(p, actor, milestoneID, taskID, now)
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "TASK_COMPLETED", EntityType: "project", EntityID: project.ID.Hex(), Actor: actor.Username},
		&NotificationInput{
			Type:               "TASK_COMPLETED",
			Title:              "Task completed",
			Message:            fmt.Sprintf("A task was completed on project %s", project.Code),
			ActorID:            actor.ID,
			ShowInLiveActivity: true,
		},
	)
	return project, nil
}

// AddComment records a comment on a task, gated by the execution rule.
func (s *ProjectService) AddComment(ctx context.Context, actor models.Actor, projectID, milestoneID, taskID, text string) (*models.Project, error) {
	if text == "" {
		return nil, utils.Validation("comment text is required")
	}
	return s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		_, t := p.FindTask(milestoneID, taskID)
		if t == nil {
			return utils.NotFound("task not found")
		}
		if err := RequireTaskExecution(actor, t); err != nil {
			return err
		}
		t.Comments = append(t.Comments, models.Comment{
			ID:     uuid.New().String(),
			Author: actor.Username,
			Text:   text,
			At:     now,
		})
		t.Timeline = append(t.Timeline, newTimelineEntry(models.TimelineCommentAdded, "Comment added", actor.Username, now))
		return nil
	})
}

// AddAttachment records a stored file reference on a task, gated by the
// execution rule.
func (s *ProjectService) AddAttachment(ctx context.Context, actor models.Actor, projectID, milestoneID, taskID, fileName, ref string) (*models.Project, error) {
	if ref == "" {
		return nil, utils.Validation("attachment reference is required")
	}
	return s.mutate(ctx, projectID, actor, func(p *models.Project, now time.Time) error {
		_, t := p.FindTask(milestoneID, taskID)
		if t == nil {
			return utils.NotFound("task not found")
		}
		if err := RequireTaskExecution(actor, t); err != nil {
			return err
		}
		t.Attachments = append(t.Attachments, models.Attachment{
			ID:         uuid.New().String(),
			FileName:   fileName,
			Ref:        ref,
			UploadedBy: actor.Username,
			At:         now,
		})
		t.Timeline = append(t.Timeline, newTimelineEntry(models.TimelineAttachmentAdded,
			fmt.Sprintf("Attachment %s added", fileName), actor.Username, now))
		return nil
	})
}

// FindAttachment locates the task owning a stored reference, for the download
// access check.
func (s *ProjectService) FindAttachment(ctx context.Context, projectID, ref string) (*models.Task, *models.Attachment, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	for i := range project.Milestones {
		m := &project.Milestones[i]
		for j := range m.Tasks {
			t := &m.Tasks[j]
			for k := range t.Attachments {
				if t.Attachments[k].Ref == ref {
					return t, &t.Attachments[k], nil
				}
			}
		}
	}
	return nil, nil, utils.NotFound("attachment not found")
}
