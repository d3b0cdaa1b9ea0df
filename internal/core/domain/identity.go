package domain

import (
	"strings"
	"time"
)

// IdentityClass selects which population of identities a request targets.
type IdentityClass string

const (
	ClassAdmin    IdentityClass = "admin"
	ClassMerchant IdentityClass = "merchant"
	ClassShopper  IdentityClass = "shopper"
)

// IdentityClasses lists every supported class in routing order.
var IdentityClasses = []IdentityClass{ClassAdmin, ClassMerchant, ClassShopper}

// ParseIdentityClass validates a class taken from a route parameter.
func ParseIdentityClass(s string) (IdentityClass, error) {
	switch c := IdentityClass(strings.ToLower(s)); c {
	case ClassAdmin, ClassMerchant, ClassShopper:
		return c, nil
	}
	return "", ErrInvalidIdentityClass
}

// SupportsPassword reports whether the class may use the email/password flow.
func (c IdentityClass) SupportsPassword() bool {
	return c == ClassMerchant || c == ClassShopper
}

// RequiresSubjectMatch reports whether the guard must compare the token id
// with the resolved identity id. Admin tokens are resolved by claims only.
func (c IdentityClass) RequiresSubjectMatch() bool {
	return c != ClassAdmin
}

// Admin roles. Other classes carry an implicit role equal to their class name.
const (
	RoleSuper     = "super"
	RoleMaster    = "master"
	RoleSupport   = "support"
	RoleFinance   = "finance"
	RoleTechnical = "technical"
)

// Standing is the lifecycle flag of an identity.
type Standing string

const (
	StandingActive   Standing = "active"
	StandingInactive Standing = "inactive"
	StandingTrashed  Standing = "trashed"
)

// Action is the administrative gate on signature authentication.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionRestrict Action = "restrict"
	ActionDeny     Action = "deny"
)

// DefaultAccessLogSize bounds Identity.LastAccess when no size is configured.
const DefaultAccessLogSize = 10

// AccessEntry is one row of the audit access log kept on the identity.
type AccessEntry struct {
	At        time.Time `json:"at" bson:"at"`
	IP        string    `json:"ip,omitempty" bson:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
}

// Notification is an in-app message attached to an identity.
type Notification struct {
	Message string `json:"message" bson:"message"`
	Unread  bool   `json:"unread" bson:"unread"`
}

// CompleteProfileNotice is seeded on every password signup.
const CompleteProfileNotice = "Welcome! Please complete your profile."

// Identity is an admin, merchant or shopper able to authenticate.
type Identity struct {
	ID            string         `json:"id"`
	Class         IdentityClass  `json:"type"`
	Address       string         `json:"address,omitempty"`
	Nonce         int64          `json:"nonce"`
	Email         string         `json:"email,omitempty"`
	PasswordHash  string         `json:"-"`
	Role          string         `json:"role,omitempty"`
	Standing      Standing       `json:"standing"`
	Action        Action         `json:"action"`
	Domain        string         `json:"domain,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	LastAccess    []AccessEntry  `json:"last_access,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// EffectiveRole is the role exposed to downstream handlers.
func (i *Identity) EffectiveRole() string {
	if i.Class == ClassAdmin {
		return i.Role
	}
	return string(i.Class)
}

// CanAuthenticate reports whether the identity may obtain or use a session.
func (i *Identity) CanAuthenticate() bool {
	return i.Standing != StandingTrashed
}

// HasPassword reports whether the password flow has been enabled.
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

// NormalizeAddress lowercases and trims an address for storage and lookup.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IdentityLookup is the filter used to resolve a single identity.
// Empty fields are ignored; at least one of Address or Email must be set.
type IdentityLookup struct {
	Address string
	Email   string
	// AllowedOnly restricts the match to identities whose action is allow.
	AllowedOnly bool
}

// IsEmpty reports whether the lookup carries no identifying field.
func (l IdentityLookup) IsEmpty() bool {
	return l.Address == "" && l.Email == ""
}

// IdentityContext is what authorization guards hand to downstream handlers.
type IdentityContext struct {
	UserID   string        `json:"userId"`
	UserType IdentityClass `json:"userType"`
	UserRole string        `json:"userRole"`
}
