// Package registry is Borealis's GraphQL client for the external package
// registry (§6). It is the "external collaborator" Discovery consumes: the
// exact GraphQL schema and wire encoding are out of scope for the core
// (§1), so this package exposes only the three paginated listing entry
// points the spec requires.
package registry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shurcooL/graphql"
	"github.com/wasmerio/borealis"
	"golang.org/x/oauth2"
)

// PageSize is the number of packages requested per GraphQL page.
const PageSize = 50

// Client queries a single registry endpoint for package listings.
type Client struct {
	gql  *graphql.Client
	host string
}

// New constructs a Client for reg. If reg.Token is set, every request
// carries it as a bearer token on the Authorization header (§6), via
// golang.org/x/oauth2's static token source — the same mechanism the
// teacher's go.mod already pulls in oauth2 for.
func New(reg borealis.Registry) *Client {
	httpClient := http.DefaultClient
	if reg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: reg.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}
	httpClient = withUserAgent(httpClient)
	return &Client{
		gql:  graphql.NewClient(reg.Endpoint, httpClient),
		host: reg.Host(),
	}
}

// Host returns the registry hostname test cases are attributed to.
func (c *Client) Host() string { return c.host }

// packageConnection mirrors the `packages: [{node: Package}]` shape from
// §6. graphql struct tags select the GraphQL field name; Go field names are
// otherwise free.
type packageConnection struct {
	Packages []struct {
		Node wirePackage `graphql:"node"`
	} `graphql:"packages"`
}

type wireVersion struct {
	ID           graphql.String `graphql:"id"`
	Version      graphql.String `graphql:"version"`
	Distribution struct {
		DownloadURL       graphql.String  `graphql:"downloadUrl"`
		PiritaDownloadURL *graphql.String `graphql:"piritaDownloadUrl"`
	} `graphql:"distribution"`
}

type wirePackage struct {
	ID          graphql.String `graphql:"id"`
	PackageName graphql.String `graphql:"packageName"`
	Namespace   graphql.String `graphql:"namespace"`
	DisplayName graphql.String `graphql:"displayName"`
	LastVersion *wireVersion   `graphql:"lastVersion"`
	Versions    []*wireVersion `graphql:"versions"`
}

func (p wirePackage) toDomain() borealis.Package {
	out := borealis.Package{
		ID:          string(p.ID),
		PackageName: string(p.PackageName),
		Namespace:   string(p.Namespace),
		DisplayName: string(p.DisplayName),
	}
	if p.LastVersion != nil {
		v := p.LastVersion.toDomain()
		out.LastVersion = &v
	}
	for _, v := range p.Versions {
		if v == nil {
			continue // "non-null versions" filter (§4.1 step 3)
		}
		out.Versions = append(out.Versions, v.toDomain())
	}
	return out
}

func (v wireVersion) toDomain() borealis.PackageVersion {
	pv := borealis.PackageVersion{
		ID:      string(v.ID),
		Version: string(v.Version),
		Distribution: borealis.Distribution{
			DownloadURL: string(v.Distribution.DownloadURL),
		},
	}
	if v.Distribution.PiritaDownloadURL != nil {
		pv.Distribution.PiritaDownloadURL = string(*v.Distribution.PiritaDownloadURL)
	}
	return pv
}

// GetNamespace returns one page of packages in namespace, starting at
// offset (§6 get_namespace).
func (c *Client) GetNamespace(ctx context.Context, namespace string, offset int) ([]borealis.Package, error) {
	var q struct {
		GetNamespacePackages packageConnection `graphql:"getNamespacePackages(name: $namespace, offset: $offset, limit: $limit)"`
	}
	vars := map[string]interface{}{
		"namespace": graphql.String(namespace),
		"offset":    graphql.Int(offset),
		"limit":     graphql.Int(PageSize),
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("getNamespacePackages(%s, %d): %w", namespace, offset, err)
	}
	return toPackages(q.GetNamespacePackages), nil
}

// GetUser returns one page of packages owned by username, starting at
// offset (§6 get_user).
func (c *Client) GetUser(ctx context.Context, username string, offset int) ([]borealis.Package, error) {
	var q struct {
		GetUserPackages packageConnection `graphql:"getUserPackages(username: $username, offset: $offset, limit: $limit)"`
	}
	vars := map[string]interface{}{
		"username": graphql.String(username),
		"offset":   graphql.Int(offset),
		"limit":    graphql.Int(PageSize),
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("getUserPackages(%s, %d): %w", username, offset, err)
	}
	return toPackages(q.GetUserPackages), nil
}

// AllPackages returns one page across the whole registry, starting at
// offset (§6 all_packages).
func (c *Client) AllPackages(ctx context.Context, offset int) ([]borealis.Package, error) {
	var q struct {
		AllPackages packageConnection `graphql:"allPackages(offset: $offset, limit: $limit)"`
	}
	vars := map[string]interface{}{
		"offset": graphql.Int(offset),
		"limit":  graphql.Int(PageSize),
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return nil, fmt.Errorf("allPackages(%d): %w", offset, err)
	}
	return toPackages(q.AllPackages), nil
}

func toPackages(conn packageConnection) []borealis.Package {
	pkgs := make([]borealis.Package, 0, len(conn.Packages))
	for _, edge := range conn.Packages {
		pkgs = append(pkgs, edge.Node.toDomain())
	}
	return pkgs
}
