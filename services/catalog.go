package services

import "fmt"

// TokenCatalog maps product slugs to the number of tokens one unit grants.
// Slugs missing from the catalog grant zero tokens; the product is still
// purchasable, it just carries no balance credit.
type TokenCatalog struct {
	grants map[string]int
}

// DefaultTokenGrants is the catalog the storefront sells today.
var DefaultTokenGrants = map[string]int{
	"100-tokens": 100,
	"220-tokens": 220,
}

// NewTokenCatalog validates the slug->tokens mapping up front so a bad
// catalog fails at startup rather than during a credit.
func NewTokenCatalog(grants map[string]int) (*TokenCatalog, error) {
	if len(grants) == 0 {
		return nil, fmt.Errorf("token catalog is empty")
	}
	for slug, tokens := range grants {
		if slug == "" {
			return nil, fmt.Errorf("token catalog contains an empty slug")
		}
		if tokens <= 0 {
			return nil, fmt.Errorf("token catalog entry %q has non-positive grant %d", slug, tokens)
		}
	}
	return &TokenCatalog{grants: grants}, nil
}

// TokensPerUnit returns the token grant for a slug, zero for unknown slugs.
func (c *TokenCatalog) TokensPerUnit(slug string) int {
	return c.grants[slug]
}

// Knows reports whether the slug is part of the catalog.
func (c *TokenCatalog) Knows(slug string) bool {
	_, ok := c.grants[slug]
	return ok
}
