package service

import (
	"github.com/bazaar-market/identity-auth/internal/core/domain"
	"github.com/bazaar-market/identity-auth/internal/core/ports"
)

// IdentityDirectory maps every identity class to its own repository.
type IdentityDirectory struct {
	repos map[domain.IdentityClass]ports.IdentityRepository
}

// NewIdentityDirectory builds a directory over the three class repositories.
func NewIdentityDirectory(admins, merchants, shoppers ports.IdentityRepository) *IdentityDirectory {
	return &IdentityDirectory{repos: map[domain.IdentityClass]ports.IdentityRepository{
		domain.ClassAdmin:    admins,
		domain.ClassMerchant: merchants,
		domain.ClassShopper:  shoppers,
	}}
}

// Repository returns the repository for class or domain.ErrInvalidIdentityClass.
func (d *IdentityDirectory) Repository(class domain.IdentityClass) (ports.IdentityRepository, error) {
	repo, ok := d.repos[class]
	if !ok || repo == nil {
		return nil, domain.ErrInvalidIdentityClass
	}
	return repo, nil
}
