package dyndns

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/cloudflare/cloudflare-go"
)

// DiscoveryError is returned when the public address could not be determined.
// It is transient; the next cycle tries again.
type DiscoveryError struct {
	Source string // the endpoint or mechanism that was queried
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("discovering public IP: %s", e.Err)
	}
	return fmt.Sprintf("discovering public IP from %s: %s", e.Source, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ZoneLookupError is returned when none of the account's hosted zones owns a domain.
// It only goes away when the zone configuration changes.
type ZoneLookupError struct {
	Domain string
	Zones  int // number of zones that were considered
}

func (e *ZoneLookupError) Error() string {
	return fmt.Sprintf("unable to find a zone matching %q among %d hosted zones", e.Domain, e.Zones)
}

// ProviderError is returned when a call to the DNS provider fails.
type ProviderError struct {
	Op     string // "list zones" or "upsert"
	Domain string
	Code   string // provider error code, if the provider reported one
	Err    error
}

func (e *ProviderError) Error() string {
	msg := e.Op
	if e.Domain != "" {
		msg += " " + e.Domain
	}
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	return fmt.Sprintf("%s: %s", msg, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerError(op, domain string, err error) *ProviderError {
	pe := &ProviderError{Op: op, Domain: domain, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		pe.Code = apiErr.ErrorCode()
	}
	return pe
}

// authCodes are the AWS error codes returned for missing, expired, or insufficient credentials.
var authCodes = map[string]bool{
	"AccessDenied":                true,
	"AccessDeniedException":       true,
	"ExpiredToken":                true,
	"ExpiredTokenException":       true,
	"InvalidClientTokenId":        true,
	"SignatureDoesNotMatch":       true,
	"UnrecognizedClientException": true,
}

// IsAuthError reports whether err means the DNS provider rejected the credentials.
// Such errors do not go away by waiting.
func IsAuthError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return authCodes[apiErr.ErrorCode()]
	}
	var cfErr interface{ Type() cloudflare.ErrorType }
	if errors.As(err, &cfErr) {
		t := cfErr.Type()
		return t == cloudflare.ErrorTypeAuthentication || t == cloudflare.ErrorTypeAuthorization
	}
	return false
}
