package models

import "time"

// AppSettingID is the _id of the single settings document.
const AppSettingID = "app"

// AppSetting holds runtime-tunable business settings. Reads go through
// services.SettingsService so tests can substitute a fixture.
type AppSetting struct {
	ID                string    `json:"id" bson:"_id"`
	LeadHotDays       int       `json:"leadHotDays" bson:"leadHotDays"`
	LeadWarmDays      int       `json:"leadWarmDays" bson:"leadWarmDays"`
	DefaultTaxPercent float64   `json:"defaultTaxPercent" bson:"defaultTaxPercent"`
	DefaultCurrency   string    `json:"defaultCurrency" bson:"defaultCurrency"`
	UpdatedBy         string    `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// DefaultAppSetting is used until an admin saves the settings document.
func DefaultAppSetting() AppSetting {
	return AppSetting{
		ID:                AppSettingID,
		LeadHotDays:       3,
		LeadWarmDays:      10,
		DefaultTaxPercent: 18,
		DefaultCurrency:   "INR",
	}
}
