package registry

import "net/http"

const userAgent = "wasmer-borealis/1.0 (+https://github.com/wasmerio/borealis)"

type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(req)
}

// withUserAgent wraps client so that every request carries the User-Agent
// header the registry requires (§6).
func withUserAgent(client *http.Client) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	clone := *client
	clone.Transport = userAgentTransport{base: base}
	return &clone
}
