package services

import (
	"context"
	"time"

	"subsidy-crm/crm-service/logging"
	"subsidy-crm/crm-service/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type AuditService struct {
	AuditCollection *mongo.Collection
}

func NewAuditService(auditCollection *mongo.Collection) *AuditService {
	return &AuditService{AuditCollection: auditCollection}
}

// Record writes an audit entry. The trail is best-effort: failures are logged
// and swallowed so they can never fail the business operation they describe.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	if _, err := s.AuditCollection.InsertOne(ctx, entry); err != nil {
		logging.Logger.Warnf("Event ID: AUDIT_WRITE_FAILED, Description: Failed to record audit entry %s/%s: %v",
			entry.EntityType, entry.Action, err)
	}
}
