package marketplace

import (
	"context"
	"fmt"
)

// StaticResolver maps store ids to provider names from configuration
type StaticResolver struct {
	providersByStore map[string]string
}

// NewStaticResolver creates a resolver from a storeID -> provider map
func NewStaticResolver(providersByStore map[string]string) *StaticResolver {
	return &StaticResolver{providersByStore: providersByStore}
}

// ProviderFor returns the provider handling a store's listings
func (r *StaticResolver) ProviderFor(_ context.Context, storeID string) (string, error) {
	provider, ok := r.providersByStore[storeID]
	if !ok {
		return "", fmt.Errorf("no marketplace provider configured for store %s", storeID)
	}
	return provider, nil
}
