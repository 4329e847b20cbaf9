package services

import (
	"context"
	"time"

	"subsidy-crm/crm-service/logging"
	"subsidy-crm/crm-service/models"
)

// SideEffectDispatcher runs audit and notification side effects after the
// primary aggregate write has committed. Dispatch never blocks the caller and
// a failing effect can never fail the business operation that queued it.
type SideEffectDispatcher struct {
	Audit         *AuditService
	Notifications *NotificationService
}

func NewSideEffectDispatcher(audit *AuditService, notifications *NotificationService) *SideEffectDispatcher {
	return &SideEffectDispatcher{Audit: audit, Notifications: notifications}
}

const sideEffectTimeout = 10 * time.Second

// AfterCommit queues the side effects for one committed mutation.
func (d *SideEffectDispatcher) AfterCommit(audit *models.AuditLog, notification *NotificationInput) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Logger.Errorf("Event ID: SIDE_EFFECT_PANIC, Description: Side-effect dispatch panicked: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		if audit != nil && d.Audit != nil {
			d.Audit.Record(ctx, *audit)
		}
		if notification != nil && d.Notifications != nil {
			if err := d.Notifications.Broadcast(ctx, *notification); err != nil {
				logging.Logger.Warnf("Event ID: NOTIFICATION_BROADCAST_FAILED, Description: Broadcast failed: %v", err)
			}
		}
	}()
}
