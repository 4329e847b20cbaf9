package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStage string

const (
	StageDocumentation    ProjectStage = "DOCUMENTATION"
	StageApplicationFiled ProjectStage = "APPLICATION_FILED"
	StageScrutiny         ProjectStage = "SCRUTINY"
	StageClarifications   ProjectStage = "CLARIFICATIONS"
	StageApproved         ProjectStage = "APPROVED"
	StageDisbursed        ProjectStage = "DISBURSED"
	StageOnHold           ProjectStage = "ON_HOLD"
	StageCompleted        ProjectStage = "COMPLETED"
	StageRejected         ProjectStage = "REJECTED"
)

// StageSequence is the fixed forward pipeline automation walks. ON_HOLD,
// COMPLETED and REJECTED sit outside it and never auto-advance.
var StageSequence = []ProjectStage{
	StageDocumentation,
	StageApplicationFiled,
	StageScrutiny,
	StageClarifications,
	StageApproved,
	StageDisbursed,
}

// Locked reports whether automation must leave the project alone.
func (s ProjectStage) Locked() bool {
	return s == StageOnHold || s == StageCompleted || s == StageRejected
}

// SequenceIndex returns the position of s in the forward pipeline, or -1 for
// stages outside it.
func (s ProjectStage) SequenceIndex() int {
	for i, stage := range StageSequence {
		if stage == s {
			return i
		}
	}
	return -1
}

func IsValidStage(s ProjectStage) bool {
	switch s {
	case StageDocumentation, StageApplicationFiled, StageScrutiny, StageClarifications,
		StageApproved, StageDisbursed, StageOnHold, StageCompleted, StageRejected:
		return true
	}
	return false
}

type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "PENDING"
	MilestoneInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneDone       MilestoneStatus = "DONE"
	MilestoneSkipped    MilestoneStatus = "SKIPPED"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskSkipped    TaskStatus = "SKIPPED"
)

// Closed reports whether the task no longer counts as open work.
func (s TaskStatus) Closed() bool {
	return s == TaskCompleted || s == TaskSkipped
}

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "HIGH"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityLow    TaskPriority = "LOW"
)

// Timeline entry types appended by the services and the automation engine.
const (
	TimelineCreated            = "CREATED"
	TimelineStageChanged       = "STAGE_CHANGED"
	TimelineStageAutoAdvanced  = "STAGE_AUTO_ADVANCED"
	TimelineProjectCompleted   = "PROJECT_AUTO_COMPLETED"
	TimelineMilestoneDone      = "MILESTONE_DONE"
	TimelineTaskCompleted      = "TASK_COMPLETED"
	TimelineCommentAdded       = "COMMENT_ADDED"
	TimelineAttachmentAdded    = "ATTACHMENT_ADDED"
	TimelinePaymentRecorded    = "PAYMENT_RECORDED"
	TimelineStatusChanged      = "STATUS_CHANGED"
)

type TimelineEntry struct {
	ID      string    `json:"id" bson:"id"`
	Type    string    `json:"type" bson:"type"`
	Message string    `json:"message" bson:"message"`
	Actor   string    `json:"actor" bson:"actor"`
	At      time.Time `json:"at" bson:"at"`
}

type StageHistoryEntry struct {
	From ProjectStage `json:"from" bson:"from"`
	To   ProjectStage `json:"to" bson:"to"`
	By   string       `json:"by" bson:"by"`
	At   time.Time    `json:"at" bson:"at"`
}

type Comment struct {
	ID     string    `json:"id" bson:"id"`
	Author string    `json:"author" bson:"author"`
	Text   string    `json:"text" bson:"text"`
	At     time.Time `json:"at" bson:"at"`
}

type Attachment struct {
	ID         string    `json:"id" bson:"id"`
	FileName   string    `json:"fileName" bson:"fileName"`
	Ref        string    `json:"ref" bson:"ref"`
	UploadedBy string    `json:"uploadedBy" bson:"uploadedBy"`
	At         time.Time `json:"at" bson:"at"`
}

// Task is owned exclusively by its milestone. Status is derived from the
// completion operations, never set directly by a client.
type Task struct {
	ID                 string          `json:"id" bson:"id"`
	Name               string          `json:"name" bson:"name"`
	Description        string          `json:"description" bson:"description"`
	Assignee           string          `json:"assignee,omitempty" bson:"assignee,omitempty"`
	Deadline           *time.Time      `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Priority           TaskPriority    `json:"priority" bson:"priority"`
	RequiresAttachment *bool           `json:"requiresAttachment,omitempty" bson:"requiresAttachment,omitempty"`
	Status             TaskStatus      `json:"status" bson:"status"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Comments           []Comment       `json:"comments" bson:"comments"`
	Attachments        []Attachment    `json:"attachments" bson:"attachments"`
	Timeline           []TimelineEntry `json:"timeline" bson:"timeline"`
}

// NeedsAttachment resolves the tri-state requirement flag; an unset flag means
// the guidance defaults have not been applied yet and counts as not required.
func (t *Task) NeedsAttachment() bool {
	return t.RequiresAttachment != nil && *t.RequiresAttachment
}

type Milestone struct {
	ID          string          `json:"id" bson:"id"`
	Name        string          `json:"name" bson:"name"`
	Description string          `json:"description" bson:"description"`
	Stage       ProjectStage    `json:"stage" bson:"stage"`
	Status      MilestoneStatus `json:"status" bson:"status"`
	StartDate   *time.Time      `json:"startDate,omitempty" bson:"startDate,omitempty"`
	DueDate     *time.Time      `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Tasks       []Task          `json:"tasks" bson:"tasks"`
	Timeline    []TimelineEntry `json:"timeline" bson:"timeline"`
}

// Closed reports whether the milestone no longer holds open work.
func (m *Milestone) Closed() bool {
	return m.Status == MilestoneDone || m.Status == MilestoneSkipped
}

type ActivityStats struct {
	MilestoneCount     int `json:"milestoneCount" bson:"milestoneCount"`
	TaskCount          int `json:"taskCount" bson:"taskCount"`
	CompletedTaskCount int `json:"completedTaskCount" bson:"completedTaskCount"`
	CommentCount       int `json:"commentCount" bson:"commentCount"`
	AttachmentCount    int `json:"attachmentCount" bson:"attachmentCount"`
}

// Project is the aggregate root: milestones and tasks are embedded and the
// whole document is read and replaced as one atomic write.
type Project struct {
	ID            primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Code          string              `json:"code" bson:"code"`
	Name          string              `json:"name" bson:"name"`
	Description   string              `json:"description" bson:"description"`
	ClientID      primitive.ObjectID  `json:"clientId" bson:"clientId"`
	LeadID        *primitive.ObjectID `json:"leadId,omitempty" bson:"leadId,omitempty"`
	CurrentStage  ProjectStage        `json:"currentStage" bson:"currentStage"`
	StageHistory  []StageHistoryEntry `json:"stageHistory" bson:"stageHistory"`
	Milestones    []Milestone         `json:"milestones" bson:"milestones"`
	ActivityStats ActivityStats       `json:"activityStats" bson:"activityStats"`
	Timeline      []TimelineEntry     `json:"timeline" bson:"timeline"`
	Version       int64               `json:"version" bson:"version"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// FindMilestone returns the embedded milestone with the given id, or nil.
func (p *Project) FindMilestone(id string) *Milestone {
	for i := range p.Milestones {
		if p.Milestones[i].ID == id {
			return &p.Milestones[i]
		}
	}
	return nil
}

// FindTask returns the milestone and task for the given ids, or nils.
func (p *Project) FindTask(milestoneID, taskID string) (*Milestone, *Task) {
	m := p.FindMilestone(milestoneID)
	if m == nil {
		return nil, nil
	}
	for i := range m.Tasks {
		if m.Tasks[i].ID == taskID {
			return m, &m.Tasks[i]
		}
	}
	return m, nil
}
