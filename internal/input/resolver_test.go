package input_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/LeNeRoTeX/setup/internal/input"
)

func emailSpec(flag *string, sources ...input.Source) input.ParameterSpec {
	return input.ParameterSpec{
		Name:      "email",
		Question:  "Contact email for certificates",
		FlagName:  "email",
		EnvName:   "SETUP_EMAIL",
		Sources:   sources,
		Normalize: input.NormalizeEmail,
		Validate:  input.ValidateEmail,
	}
}

func TestResolveFromFlag(t *testing.T) {
	flag := "Ops@Example.COM"
	r := input.NewResolver(nil)
	got, err := r.Resolve(emailSpec(&flag, input.Flag(&flag), input.Prompt()))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "ops@example.com" {
		t.Errorf("Resolve = %q, want ops@example.com", got)
	}
}

func TestResolveFromEnv(t *testing.T) {
	t.Setenv("SETUP_EMAIL", "ops@example.com")
	flag := ""
	r := input.NewResolver(nil)
	got, err := r.Resolve(emailSpec(&flag, input.Flag(&flag), input.Env("SETUP_EMAIL")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "ops@example.com" {
		t.Errorf("Resolve = %q, want ops@example.com", got)
	}
}

func TestResolveInvalidFlagFallsThrough(t *testing.T) {
	t.Setenv("SETUP_EMAIL", "ops@example.com")
	flag := "not-an-email"
	r := input.NewResolver(nil)
	got, err := r.Resolve(emailSpec(&flag, input.Flag(&flag), input.Env("SETUP_EMAIL")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "ops@example.com" {
		t.Errorf("Resolve = %q, want ops@example.com", got)
	}
}

func TestResolveInteractiveRetry(t *testing.T) {
	var out bytes.Buffer
	ch := input.NewChannel(strings.NewReader("not-an-email\nops@example.com\n"), &out)
	flag := ""
	r := input.NewResolver(ch)
	got, err := r.Resolve(emailSpec(&flag, input.Flag(&flag), input.Prompt()))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "ops@example.com" {
		t.Errorf("Resolve = %q, want ops@example.com", got)
	}
	if n := strings.Count(out.String(), "Invalid email"); n != 1 {
		t.Errorf("rejection messages = %d, want exactly 1\noutput: %s", n, out.String())
	}
}

func TestResolvePromptDefaultFromInvalidCandidate(t *testing.T) {
	var out bytes.Buffer
	ch := input.NewChannel(strings.NewReader("ops@example.com\n"), &out)
	flag := "not-an-email"
	r := input.NewResolver(ch)
	got, err := r.Resolve(emailSpec(&flag, input.Flag(&flag), input.Prompt()))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "ops@example.com" {
		t.Errorf("Resolve = %q, want ops@example.com", got)
	}
	if !strings.Contains(out.String(), "[not-an-email]") {
		t.Errorf("prompt should offer the invalid candidate as default, got: %s", out.String())
	}
}

func TestResolveUnresolvable(t *testing.T) {
	flag := ""
	r := input.NewResolver(nil)
	_, err := r.Resolve(emailSpec(&flag, input.Flag(&flag), input.Prompt()))
	if err == nil {
		t.Fatal("Resolve = nil error, want UnresolvableInputError")
	}
	var unresolvable *input.UnresolvableInputError
	if !errors.As(err, &unresolvable) {
		t.Fatalf("error type = %T, want *UnresolvableInputError", err)
	}
	msg := err.Error()
	for _, want := range []string{"email", "--email", "SETUP_EMAIL"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestResolveDerivedFQDN(t *testing.T) {
	domainFlag := "Example.COM"
	subFlag := "Demo"
	fqdnFlag := ""
	r := input.NewResolver(nil)

	if _, err := r.Resolve(input.ParameterSpec{
		Name: "domain", FlagName: "domain", EnvName: "SETUP_DOMAIN",
		Sources:   []input.Source{input.Flag(&domainFlag)},
		Normalize: input.NormalizeHost,
		Validate:  input.ValidateDomain,
	}); err != nil {
		t.Fatalf("resolve domain: %v", err)
	}
	if _, err := r.Resolve(input.ParameterSpec{
		Name: "subdomain", FlagName: "subdomain", EnvName: "SETUP_SUBDOMAIN",
		Sources:   []input.Source{input.Flag(&subFlag)},
		Normalize: input.NormalizeHost,
		Validate:  input.ValidateLabel,
	}); err != nil {
		t.Fatalf("resolve subdomain: %v", err)
	}

	fqdn, err := r.Resolve(input.ParameterSpec{
		Name: "fqdn", FlagName: "fqdn", EnvName: "SETUP_FQDN",
		Sources: []input.Source{
			input.Flag(&fqdnFlag),
			input.Derived(func(resolved map[string]string) (string, error) {
				return input.JoinFQDN(resolved["subdomain"], resolved["domain"]), nil
			}),
		},
		Normalize: input.NormalizeHost,
		Validate:  input.ValidateDomain,
	})
	if err != nil {
		t.Fatalf("resolve fqdn: %v", err)
	}
	if fqdn != "demo.example.com" {
		t.Errorf("fqdn = %q, want demo.example.com", fqdn)
	}
}

func TestResolveDerivedSplit(t *testing.T) {
	fqdn := "demo.example.com"
	r := input.NewResolver(nil)
	domain, err := r.Resolve(input.ParameterSpec{
		Name: "domain", FlagName: "domain", EnvName: "SETUP_DOMAIN",
		Sources: []input.Source{
			input.Derived(func(map[string]string) (string, error) {
				_, d, err := input.SplitFQDN(fqdn)
				return d, err
			}),
		},
		Normalize: input.NormalizeHost,
		Validate:  input.ValidateDomain,
	})
	if err != nil {
		t.Fatalf("resolve domain: %v", err)
	}
	if domain != "example.com" {
		t.Errorf("domain = %q, want example.com", domain)
	}
}

func TestResolvedValuesAreRecorded(t *testing.T) {
	flag := "ops@example.com"
	r := input.NewResolver(nil)
	if _, err := r.Resolve(emailSpec(&flag, input.Flag(&flag))); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Value("email") != "ops@example.com" {
		t.Errorf("Value(email) = %q", r.Value("email"))
	}
	if got := r.Resolved()["email"]; got != "ops@example.com" {
		t.Errorf("Resolved()[email] = %q", got)
	}
}
