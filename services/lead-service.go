package services

import (
	"context"
	"fmt"
	"time"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type LeadService struct {
	LeadsCollection   *mongo.Collection
	ClientsCollection *mongo.Collection
	Counters          *CounterService
	Settings          SettingsAccessor
	Dispatcher        *SideEffectDispatcher
}

func NewLeadService(
	leadsCollection, clientsCollection *mongo.Collection,
	counters *CounterService,
	settings SettingsAccessor,
	dispatcher *SideEffectDispatcher,
) *LeadService {
	return &LeadService{
		LeadsCollection:   leadsCollection,
		ClientsCollection: clientsCollection,
		Counters:          counters,
		Settings:          settings,
		Dispatcher:        dispatcher,
	}
}

// Temperature buckets a lead by activity recency.
func Temperature(lastActivityAt, now time.Time, hotDays, warmDays int) models.LeadTemperature {
	age := now.Sub(lastActivityAt)
	switch {
	case age <= time.Duration(hotDays)*24*time.Hour:
		return models.LeadHot
	case age <= time.Duration(warmDays)*24*time.Hour:
		return models.LeadWarm
	default:
		return models.LeadCold
	}
}

// LeadView is a lead plus its derived temperature.
type LeadView struct {
	models.Lead
	Temperature models.LeadTemperature `json:"temperature"`
}

func (s *LeadService) view(ctx context.Context, lead models.Lead) LeadView {
	settings := s.Settings.Get(ctx)
	return LeadView{
		Lead:        lead,
		Temperature: Temperature(lead.LastActivityAt, time.Now(), settings.LeadHotDays, settings.LeadWarmDays),
	}
}

type CreateLeadInput struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Source     string `json:"source"`
	Notes      string `json:"notes"`
	AssignedTo string `json:"assignedTo"`
}

// CreateLead registers a lead in status NEW with the LEAD sequence code.
func (s *LeadService) CreateLead(ctx context.Context, actor models.Actor, input CreateLeadInput) (*LeadView, error) {
	if input.Name == "" {
		return nil, utils.Validation("lead name is required")
	}

	seq, err := s.Counters.Next(ctx, SeqLeads)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lead := models.Lead{
		ID:             primitive.NewObjectID(),
		Code:           FormatSequence("LEAD", seq),
		Name:           input.Name,
		Company:        input.Company,
		Email:          input.Email,
		Phone:          input.Phone,
		Source:         input.Source,
		Notes:          input.Notes,
		AssignedTo:     input.AssignedTo,
		Status:         models.LeadNew,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.LeadsCollection.InsertOne(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %v", err)
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "LEAD_CREATED", EntityType: "lead", EntityID: lead.ID.Hex(), Actor: actor.Username, After: lead},
		&NotificationInput{
			Type:               "LEAD_CREATED",
			Title:              "New lead",
			Message:            fmt.Sprintf("Lead %s (%s) was registered", lead.Name, lead.Code),
			ActorID:            actor.ID,
			ShowInLiveActivity: true,
		},
	)
	v := s.view(ctx, lead)
	return &v, nil
}

// GetLeadByID loads one lead with its derived temperature.
func (s *LeadService) GetLeadByID(ctx context.Context, leadID string) (*LeadView, error) {
	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, *lead)
	return &v, nil
}

func (s *LeadService) loadLead(ctx context.Context, leadID string) (*models.Lead, error) {
	objectID, err := primitive.ObjectIDFromHex(leadID)
	if err != nil {
		return nil, utils.Validation("invalid lead ID format")
	}
	var lead models.Lead
	err = s.LeadsCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&lead)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFound("lead not found")
		}
		return nil, fmt.Errorf("error fetching lead: %v", err)
	}
	return &lead, nil
}

// GetAllLeads returns every lead with derived temperatures.
func (s *LeadService) GetAllLeads(ctx context.Context) ([]LeadView, error) {
	cursor, err := s.LeadsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve leads: %v", err)
	}
	defer cursor.Close(ctx)

	var leads []models.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode leads: %v", err)
	}

	settings := s.Settings.Get(ctx)
	now := time.Now()
	views := make([]LeadView, 0, len(leads))
	for _, lead := range leads {
		views = append(views, LeadView{
			Lead:        lead,
			Temperature: Temperature(lead.LastActivityAt, now, settings.LeadHotDays, settings.LeadWarmDays),
		})
	}
	return views, nil
}

// ChangeStatus moves the lead through its lifecycle, tracking history. The
// first transition out of NEW stamps the first-response time.
func (s *LeadService) ChangeStatus(ctx context.Context, actor models.Actor, leadID string, to models.LeadStatus) (*LeadView, error) {
	if !models.IsValidLeadStatus(to) {
		return nil, utils.Validation("unknown lead status: %s", to)
	}
	if to == models.LeadConverted {
		return nil, utils.Validation("use the convert operation to convert a lead")
	}

	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status == models.LeadConverted {
		return nil, utils.Conflict("a converted lead cannot change status")
	}
	if lead.Status == to {
		v := s.view(ctx, *lead)
		return &v, nil
	}

	now := time.Now()
	lead.StatusHistory = append(lead.StatusHistory, models.LeadStatusChange{
		From: lead.Status, To: to, By: actor.Username, At: now,
	})
	if lead.Status == models.LeadNew && lead.FirstResponseAt == nil {
		lead.FirstResponseAt = &now
	}
	before := lead.Status
	lead.Status = to
	lead.LastActivityAt = now
	lead.UpdatedAt = now

	if err := s.saveLead(ctx, lead); err != nil {
		return nil, err
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "LEAD_STATUS_CHANGED", EntityType: "lead", EntityID: lead.ID.Hex(), Actor: actor.Username, Before: before, After: to},
		nil,
	)
	v := s.view(ctx, *lead)
	return &v, nil
}

// TouchActivity refreshes the recency clock, e.g. after a call or note.
func (s *LeadService) TouchActivity(ctx context.Context, actor models.Actor, leadID, note string) (*LeadView, error) {
	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lead.LastActivityAt = now
	lead.UpdatedAt = now
	if note != "" {
		if lead.Notes != "" {
			lead.Notes += "\n"
		}
		lead.Notes += fmt.Sprintf("[%s] %s: %s", now.Format("2006-01-02"), actor.Username, note)
	}

	if err := s.saveLead(ctx, lead); err != nil {
		return nil, err
	}
	v := s.view(ctx, *lead)
	return &v, nil
}

// Convert turns a qualified lead into a client, linking both directions.
// Double conversion is rejected.
func (s *LeadService) Convert(ctx context.Context, actor models.Actor, leadID string) (*models.Client, error) {
	lead, err := s.loadLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status == models.LeadConverted {
		return nil, utils.Conflict("lead is already converted")
	}
	if lead.Status == models.LeadLost {
		return nil, utils.Conflict("a lost lead cannot be converted")
	}

	seq, err := s.Counters.Next(ctx, SeqClients)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	client := models.Client{
		ID:        primitive.NewObjectID(),
		Code:      FormatSequence("CL", seq),
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		LeadID:    &lead.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if lead.Company != "" {
		client.Name = lead.Company
	}

	if _, err := s.ClientsCollection.InsertOne(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client from lead: %v", err)
	}

	lead.StatusHistory = append(lead.StatusHistory, models.LeadStatusChange{
		From: lead.Status, To: models.LeadConverted, By: actor.Username, At: now,
	})
	if lead.Status == models.LeadNew && lead.FirstResponseAt == nil {
		lead.FirstResponseAt = &now
	}
	lead.Status = models.LeadConverted
	lead.ClientID = &client.ID
	lead.LastActivityAt = now
	lead.UpdatedAt = now

	if err := s.saveLead(ctx, lead); err != nil {
		return nil, err
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "LEAD_CONVERTED", EntityType: "lead", EntityID: lead.ID.Hex(), Actor: actor.Username, After: client},
		&NotificationInput{
			Type:               "LEAD_CONVERTED",
			Title:              "Lead converted",
			Message:            fmt.Sprintf("Lead %s became client %s", lead.Code, client.Code),
			ActorID:            actor.ID,
			ShowInLiveActivity: true,
		},
	)
	return &client, nil
}

func (s *LeadService) saveLead(ctx context.Context, lead *models.Lead) error {
	result, err := s.LeadsCollection.ReplaceOne(ctx, bson.M{"_id": lead.ID}, lead)
	if err != nil {
		return fmt.Errorf("failed to save lead: %v", err)
	}
	if result.MatchedCount == 0 {
		return utils.NotFound("lead not found")
	}
	return nil
}
