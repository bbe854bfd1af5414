// Package overpass queries the Overpass API and exposes the result as OSM
// elements.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// New returns a client allowing one query per second.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
	}
}

// SetRateLimit replaces the query rate limit.
func (c *Client) SetRateLimit(rps float64, burst int) {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

type QueryError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Query runs an Overpass QL query. The query must request JSON output.
func (c *Client) Query(ctx context.Context, query string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "osm-ingest")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			body = nil
		}
		return nil, &QueryError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	return ParseJSON(resp.Body)
}

// BBoxQuery returns a query for every node and way with at least one of keys
// inside the box, along with the nodes of those ways.
func BBoxQuery(south, west, north, east float64, keys ...string) string {
	var b strings.Builder
	b.WriteString("[out:json];\n(\n")
	bbox := fmt.Sprintf("(%f,%f,%f,%f)", south, west, north, east)
	for _, k := range keys {
		fmt.Fprintf(&b, "  node[%q]%s;\n  way[%q]%s;\n", k, bbox, k, bbox)
	}
	b.WriteString(");\n( ._; >; );\nout meta;\n")
	return b.String()
}
