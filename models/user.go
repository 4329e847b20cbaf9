package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Module names used by the per-user allowlist.
const (
	ModuleLeads    = "leads"
	ModuleClients  = "clients"
	ModuleProjects = "projects"
	ModuleInvoices = "invoices"
	ModuleUsers    = "users"
	ModuleSettings = "settings"
)

type User struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Username       string             `json:"username" bson:"username"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	Password       string             `json:"-" bson:"password"`
	Role           Role               `json:"role" bson:"role"`
	AllowedModules []string           `json:"allowedModules" bson:"allowedModules"`
	IsActive       bool               `json:"isActive" bson:"isActive"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

// Actor is the authenticated principal carried through request context,
// extracted from JWT claims by the auth middleware.
type Actor struct {
	ID       string
	Username string
	Role     Role
	Modules  []string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAccessModule checks the per-module allowlist; admins pass everything.
func (a Actor) CanAccessModule(module string) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, m := range a.Modules {
		if m == module {
			return true
		}
	}
	return false
}

func (u *User) CanAccessModule(module string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, m := range u.AllowedModules {
		if m == module {
			return true
		}
	}
	return false
}
