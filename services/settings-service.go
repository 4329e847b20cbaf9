package services

import (
	"context"
	"fmt"
	"time"

	"subsidy-crm/crm-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SettingsAccessor is what services depend on so tests can substitute a
// fixture instead of a live collection.
type SettingsAccessor interface {
	Get(ctx context.Context) models.AppSetting
}

// StaticSettings is the test fixture: a fixed settings value.
type StaticSettings struct {
	Value models.AppSetting
}

func (s StaticSettings) Get(ctx context.Context) models.AppSetting {
	return s.Value
}

type SettingsService struct {
	SettingsCollection *mongo.Collection
}

func NewSettingsService(settingsCollection *mongo.Collection) *SettingsService {
	return &SettingsService{SettingsCollection: settingsCollection}
}

// Get returns the settings document, falling back to defaults when none has
// been saved yet or the read fails.
func (s *SettingsService) Get(ctx context.Context) models.AppSetting {
	var setting models.AppSetting
	err := s.SettingsCollection.FindOne(ctx, bson.M{"_id": models.AppSettingID}).Decode(&setting)
	if err != nil {
		return models.DefaultAppSetting()
	}
	return setting
}

// Patch applies non-zero fields from the supplied patch and returns the
// updated document.
func (s *SettingsService) Patch(ctx context.Context, patch models.AppSetting, actor string) (models.AppSetting, error) {
	current := s.Get(ctx)
	if patch.LeadHotDays > 0 {
		current.LeadHotDays = patch.LeadHotDays
	}
	if patch.LeadWarmDays > 0 {
		current.LeadWarmDays = patch.LeadWarmDays
	}
	if patch.DefaultTaxPercent > 0 {
		current.DefaultTaxPercent = patch.DefaultTaxPercent
	}
	if patch.DefaultCurrency != "" {
		current.DefaultCurrency = patch.DefaultCurrency
	}
	current.ID = models.AppSettingID
	current.UpdatedBy = actor
	current.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	if _, err := s.SettingsCollection.ReplaceOne(ctx, bson.M{"_id": models.AppSettingID}, current, opts); err != nil {
		return models.AppSetting{}, fmt.Errorf("failed to save settings: %v", err)
	}
	return current, nil
}
