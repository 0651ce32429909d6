package dyndns

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// DefaultDiscoveryURL returns the caller's address as a bare string.
const DefaultDiscoveryURL = "https://api.ipify.org"

// NewWebResolver constructs a resolver which asks an external web service for the "public" IP address.
//
// The service must speak http and return status "200 OK",
// with a valid IPv4 or IPv6 address as the first line of the response body.
// All other responses are considered an error.
//
// For clients which have both IPv4 and IPv6 capability,
// use an endpoint that prefers one or the other, e.g. https://api4.ipify.org.
func NewWebResolver(serviceURL string) (*WebResolver, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	return &WebResolver{URL: u}, nil
}

// WebResolver implements dyndns.Resolver with a single plain-text HTTP GET.
type WebResolver struct {
	URL        *url.URL
	HTTPClient *http.Client // defaults to a cleanhttp client
}

func (wr *WebResolver) SetHTTPClient(client *http.Client) {
	wr.HTTPClient = client
}

// Resolve implements dyndns.Resolver.
// Every failure is returned as a *DiscoveryError.
func (wr *WebResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	if wr.URL == nil {
		return netip.Addr{}, &DiscoveryError{Err: errors.New("no external IP lookup service was provided")}
	}
	addr, err := wr.lookup(ctx)
	if err != nil {
		return netip.Addr{}, &DiscoveryError{Source: wr.URL.Redacted(), Err: err}
	}
	return addr, nil
}

var defaultHTTPClient = cleanhttp.DefaultClient()

// maxBodySize bounds how much of a discovery response is read.
// The longest textual IPv6 address is 45 bytes.
const maxBodySize = 256

func (wr *WebResolver) lookup(ctx context.Context) (netip.Addr, error) {
	// 15 seconds is an eternity for the size of the request we're making,
	// but this ensures that a cycle eventually completes even with a client that has no timeout.
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wr.URL.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.HTTPClient
	if httpclient == nil {
		httpclient = defaultHTTPClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("http request returned %s", resp.Status)
	}

	r := bufio.NewReader(io.LimitReader(resp.Body, maxBodySize))
	ipstring, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return netip.Addr{}, fmt.Errorf("error reading response body: %w", err)
	}
	ip, err := ParseAddress(ipstring)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	return ip, nil
}
