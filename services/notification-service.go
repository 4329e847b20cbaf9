package services

import (
	"context"
	"fmt"
	"time"

	"subsidy-crm/crm-service/logging"
	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/realtime"
	"subsidy-crm/crm-service/repositories"
	"subsidy-crm/crm-service/utils"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationInput is what business services hand to the side channel.
type NotificationInput struct {
	Type               string
	Title              string
	Message            string
	Payload            map[string]string
	ActorID            string
	ShowInLiveActivity bool
}

type NotificationService struct {
	NotificationsCollection *mongo.Collection
	UsersCollection         *mongo.Collection
	Hub                     *realtime.Hub
	Archive                 *repositories.NotificationArchive
	ArchiveBreaker          *gobreaker.CircuitBreaker
}

func NewNotificationService(
	notificationsCollection, usersCollection *mongo.Collection,
	hub *realtime.Hub,
	archive *repositories.NotificationArchive,
	archiveBreaker *gobreaker.CircuitBreaker,
) *NotificationService {
	return &NotificationService{
		NotificationsCollection: notificationsCollection,
		UsersCollection:         usersCollection,
		Hub:                     hub,
		Archive:                 archive,
		ArchiveBreaker:          archiveBreaker,
	}
}

// Broadcast persists one notification per active user and pushes a live event
// to each user's private channel. Archive writes go through the circuit
// breaker and are best-effort.
func (s *NotificationService) Broadcast(ctx context.Context, input NotificationInput) error {
	cursor, err := s.UsersCollection.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return fmt.Errorf("failed to load active users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return fmt.Errorf("failed to decode active users: %v", err)
	}
	if len(users) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(users))
	notifications := make([]models.Notification, 0, len(users))
	for _, user := range users {
		n := models.Notification{
			ID:                 uuid.New().String(),
			UserID:             user.ID.Hex(),
			Username:           user.Username,
			Type:               input.Type,
			Title:              input.Title,
			Message:            input.Message,
			Payload:            input.Payload,
			ActorID:            input.ActorID,
			ShowInLiveActivity: input.ShowInLiveActivity,
			CreatedAt:          now,
			IsRead:             false,
		}
		docs = append(docs, n)
		notifications = append(notifications, n)
	}

	if _, err := s.NotificationsCollection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to persist notifications: %v", err)
	}

	for _, n := range notifications {
		if n.ShowInLiveActivity && s.Hub != nil {
			s.Hub.Push(n.Username, realtime.Event{
				Type:    n.Type,
				Title:   n.Title,
				Message: n.Message,
				Payload: n.Payload,
			})
		}
		s.archive(n)
	}
	return nil
}

func (s *NotificationService) archive(n models.Notification) {
	if s.Archive == nil {
		return
	}
	_, err := s.ArchiveBreaker.Execute(func() (interface{}, error) {
		return nil, s.Archive.Append(n)
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_ARCHIVE_FAILED, Description: Archive write skipped for user %s: %v", n.Username, err)
	}
}

// ListByUsername returns the inbox rows for one user, newest first.
func (s *NotificationService) ListByUsername(ctx context.Context, username string) ([]models.Notification, error) {
	cursor, err := s.NotificationsCollection.Find(ctx, bson.M{"username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %v", err)
	}
	return notifications, nil
}

// MarkRead flags one inbox row as read.
func (s *NotificationService) MarkRead(ctx context.Context, username, notificationID string) error {
	result, err := s.NotificationsCollection.UpdateOne(ctx,
		bson.M{"id": notificationID, "username": username},
		bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %v", err)
	}
	if result.MatchedCount == 0 {
		return utils.NotFound("notification not found")
	}
	return nil
}

// Delete removes one inbox row.
func (s *NotificationService) Delete(ctx context.Context, username, notificationID string) error {
	result, err := s.NotificationsCollection.DeleteOne(ctx,
		bson.M{"id": notificationID, "username": username})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %v", err)
	}
	if result.DeletedCount == 0 {
		return utils.NotFound("notification not found")
	}
	return nil
}
