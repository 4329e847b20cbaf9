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

type ClientService struct {
	ClientsCollection *mongo.Collection
	Counters          *CounterService
	Dispatcher        *SideEffectDispatcher
}

func NewClientService(clientsCollection *mongo.Collection, counters *CounterService, dispatcher *SideEffectDispatcher) *ClientService {
	return &ClientService{
		ClientsCollection: clientsCollection,
		Counters:          counters,
		Dispatcher:        dispatcher,
	}
}

type ClientInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	GSTIN   string `json:"gstin"`
}

// CreateClient registers a client directly, without a lead.
func (s *ClientService) CreateClient(ctx context.Context, actor models.Actor, input ClientInput) (*models.Client, error) {
	if input.Name == "" {
		return nil, utils.Validation("client name is required")
	}

	seq, err := s.Counters.Next(ctx, SeqClients)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	client := models.Client{
		ID:        primitive.NewObjectID(),
		Code:      FormatSequence("CL", seq),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
		GSTIN:     input.GSTIN,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.ClientsCollection.InsertOne(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %v", err)
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "CLIENT_CREATED", EntityType: "client", EntityID: client.ID.Hex(), Actor: actor.Username, After: client},
		nil,
	)
	return &client, nil
}

// GetClientByID loads one client.
func (s *ClientService) GetClientByID(ctx context.Context, clientID string) (*models.Client, error) {
	objectID, err := primitive.ObjectIDFromHex(clientID)
	if err != nil {
		return nil, utils.Validation("invalid client ID format")
	}
	var client models.Client
	err = s.ClientsCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&client)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFound("client not found")
		}
		return nil, fmt.Errorf("error fetching client: %v", err)
	}
	return &client, nil
}

// GetAllClients returns every client.
func (s *ClientService) GetAllClients(ctx context.Context) ([]models.Client, error) {
	cursor, err := s.ClientsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve clients: %v", err)
	}
	defer cursor.Close(ctx)

	var clients []models.Client
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("failed to decode clients: %v", err)
	}
	return clients, nil
}

// UpdateClient edits client fields.
func (s *ClientService) UpdateClient(ctx context.Context, actor models.Actor, clientID string, input ClientInput) (*models.Client, error) {
	client, err := s.GetClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		client.Name = input.Name
	}
	if input.Email != "" {
		client.Email = input.Email
	}
	if input.Phone != "" {
		client.Phone = input.Phone
	}
	if input.Address != "" {
		client.Address = input.Address
	}
	if input.GSTIN != "" {
		client.GSTIN = input.GSTIN
	}
	client.UpdatedAt = time.Now()

	result, err := s.ClientsCollection.ReplaceOne(ctx, bson.M{"_id": client.ID}, client)
	if err != nil {
		return nil, fmt.Errorf("failed to save client: %v", err)
	}
	if result.MatchedCount == 0 {
		return nil, utils.NotFound("client not found")
	}

	s.Dispatcher.AfterCommit(
		&models.AuditLog{Action: "CLIENT_UPDATED", EntityType: "client", EntityID: client.ID.Hex(), Actor: actor.Username, After: client},
		nil,
	)
	return client, nil
}
