package webauthn

import (
	"fmt"
	"net/url"
	"strings"
)

// resolveOrigin returns the caller origin for a ceremony: the explicit
// origin from the options when present, else https://<rpID>. The
// resolved origin is validated against the rp id either way.
func resolveOrigin(origin, rpID string) (string, error) {
	if origin == "" {
		if rpID == "" {
			return "", fmt.Errorf("rpId is empty")
		}
		origin = "https://" + rpID
	}
	if err := validateOrigin(origin); err != nil {
		return "", err
	}
	if err := validateRPID(origin, rpID); err != nil {
		return "", err
	}
	return origin, nil
}

// validateOrigin checks that origin is a well-formed HTTPS URL with no
// path, query, or fragment. Everything else (http, file, javascript,
// data URIs) is rejected.
func validateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("origin is not a valid URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("origin scheme must be https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("origin has no host")
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("origin must be scheme and host only")
	}
	return nil
}

// validateRPID checks that rpID is the origin's effective domain or a
// registrable domain suffix of it (WebAuthn section 7.1, step 8):
// origin "https://login.example.com" accepts rpID "example.com" and
// "login.example.com" but not "notexample.com".
func validateRPID(origin, rpID string) error {
	if rpID == "" {
		return fmt.Errorf("rpId is empty")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("origin is not a valid URL: %w", err)
	}
	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return fmt.Errorf("origin has no hostname")
	}
	rpID = strings.ToLower(rpID)
	if hostname == rpID || strings.HasSuffix(hostname, "."+rpID) {
		return nil
	}
	return fmt.Errorf("rpId %q is not a registrable domain suffix of origin host %q", rpID, hostname)
}
