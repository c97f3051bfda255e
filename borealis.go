// Package borealis defines the data model shared by every stage of the
// Wasmer Borealis experiment pipeline: discovery, caching, running and
// aggregation. Subpackages under internal/ implement the stages themselves.
package borealis

import "net/url"

// Registry identifies a GraphQL package registry endpoint that Discovery and
// Cache test cases are attributed to.
type Registry struct {
	// Endpoint is the registry's GraphQL URL, e.g. https://registry.wapm.io/graphql.
	Endpoint string

	// Token is an optional bearer token sent as the Authorization header.
	Token string
}

// Host returns the hostname portion of the registry endpoint, used as the
// first path component of cache and base-dir layouts (§4.2, §4.3).
func (r Registry) Host() string {
	u, err := url.Parse(r.Endpoint)
	if err != nil || u.Host == "" {
		return r.Endpoint
	}
	return u.Host
}
