package handler

import (
	"time"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

type proofRequest struct {
	Signature string `json:"signature" validate:"required"`
	Address   string `json:"address"   validate:"required,eth_addr"`
}

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type challengeResponse struct {
	Address  string `json:"address"`
	Nonce    int64  `json:"nonce"`
	AuthType string `json:"authType"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type identityResponse struct {
	ID            string                `json:"id"`
	Type          string                `json:"type"`
	Address       string                `json:"address,omitempty"`
	Email         string                `json:"email,omitempty"`
	Role          string                `json:"role,omitempty"`
	Standing      string                `json:"standing"`
	Action        string                `json:"action"`
	Domain        string                `json:"domain,omitempty"`
	Notifications []domain.Notification `json:"notifications,omitempty"`
	CreatedAt     string                `json:"created_at"`
}

type auditEventResponse struct {
	Class      string `json:"class"`
	Kind       string `json:"kind"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Address    string `json:"address,omitempty"`
	Email      string `json:"email,omitempty"`
	IdentityID string `json:"identity_id,omitempty"`
	IP         string `json:"ip,omitempty"`
	At         string `json:"at"`
}

type auditListResponse struct {
	Items []auditEventResponse `json:"items"`
	Count int                  `json:"count"`
}

func toIdentityResponse(i *domain.Identity) identityResponse {
	return identityResponse{
		ID:            i.ID,
		Type:          string(i.Class),
		Address:       i.Address,
		Email:         i.Email,
		Role:          i.EffectiveRole(),
		Standing:      string(i.Standing),
		Action:        string(i.Action),
		Domain:        i.Domain,
		Notifications: i.Notifications,
		CreatedAt:     i.CreatedAt.Format(time.RFC3339),
	}
}

func toAuditEventResponse(e *domain.AuthEvent) auditEventResponse {
	return auditEventResponse{
		Class:      string(e.Class),
		Kind:       string(e.Kind),
		Outcome:    e.Outcome,
		Reason:     e.Reason,
		Address:    e.Address,
		Email:      e.Email,
		IdentityID: e.IdentityID,
		IP:         e.IP,
		At:         e.At.Format(time.RFC3339),
	}
}
