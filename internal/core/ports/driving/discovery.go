package driving

import "github.com/custodia-labs/tap-freshcaller/internal/core/domain"

// DiscoveryService lists the streams the tap can replicate.
type DiscoveryService interface {
	// Discover builds the catalog from the compiled-in registry and schemas.
	// It never contacts the upstream API.
	Discover() (domain.Catalog, error)
}
