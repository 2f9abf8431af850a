package input

import (
	"fmt"
	"strings"
)

// NormalizeHost lowercases and trims a host-like candidate (domains,
// subdomains, FQDNs) so validation always sees canonical form.
func NormalizeHost(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail trims and lowercases an email candidate.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateLabel checks a single DNS label: 1-63 characters, lowercase
// alphanumerics plus internal hyphens.
func ValidateLabel(s string) error {
	if s == "" {
		return fmt.Errorf("must not be empty")
	}
	if len(s) > 63 {
		return fmt.Errorf("label %q exceeds 63 characters", s)
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return fmt.Errorf("label %q must not start or end with a hyphen", s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' {
			continue
		}
		return fmt.Errorf("label %q contains invalid character %q", s, c)
	}
	return nil
}

// ValidateDomain checks a dot-separated domain name: at least two valid
// labels, with a final label of two or more alphabetic characters.
func ValidateDomain(s string) error {
	if s == "" {
		return fmt.Errorf("must not be empty")
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return fmt.Errorf("%q is not a dot-separated domain name", s)
	}
	for _, label := range labels {
		if err := ValidateLabel(label); err != nil {
			return err
		}
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 || !isAlpha(tld) {
		return fmt.Errorf("top-level label %q must be two or more letters", tld)
	}
	return nil
}

// ValidateEmail checks for a non-empty local part and a valid domain on
// the right-hand side of the '@'.
func ValidateEmail(s string) error {
	local, domain, found := strings.Cut(s, "@")
	if !found {
		return fmt.Errorf("%q is missing an '@'", s)
	}
	if local == "" {
		return fmt.Errorf("%q has an empty local part", s)
	}
	if strings.ContainsAny(local, " \t") {
		return fmt.Errorf("%q contains whitespace", s)
	}
	if err := ValidateDomain(domain); err != nil {
		return fmt.Errorf("mail domain: %w", err)
	}
	return nil
}

// SplitFQDN splits a fully qualified name into its first label (the
// subdomain) and the remainder (the base domain). The rule is unambiguous
// so that JoinFQDN round-trips exactly for any validated input.
func SplitFQDN(fqdn string) (subdomain, domain string, err error) {
	subdomain, domain, found := strings.Cut(fqdn, ".")
	if !found {
		return "", "", fmt.Errorf("%q has no dot to split on", fqdn)
	}
	if err := ValidateLabel(subdomain); err != nil {
		return "", "", err
	}
	if err := ValidateDomain(domain); err != nil {
		return "", "", err
	}
	return subdomain, domain, nil
}

// JoinFQDN is the inverse of SplitFQDN.
func JoinFQDN(subdomain, domain string) string {
	return subdomain + "." + domain
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
