package service

import (
	"time"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

type discardEvents struct{}

func (discardEvents) Record(domain.AuthEvent) {}

func newAuthEvent(
	class domain.IdentityClass,
	kind domain.AuthEventKind,
	address, email string,
	origin ports.AccessOrigin,
	identity *domain.Identity,
	err error,
	at time.Time,
) domain.AuthEvent {
	event := domain.AuthEvent{
		Class:   class,
		Kind:    kind,
		Outcome: domain.OutcomeSuccess,
		Address: domain.NormalizeAddress(address),
		Email:   domain.NormalizeEmail(email),
		IP:      origin.IP,
		At:      at,
	}
	if identity != nil {
		event.IdentityID = identity.ID
	}
	if err != nil {
		event.Outcome = domain.OutcomeFailure
		event.Reason = err.Error()
	}
	return event
}
