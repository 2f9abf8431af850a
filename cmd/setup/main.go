// setup – container host provisioning CLI
//
// Usage:
//
//	setup doctor    – check host prerequisites
//	setup proxy     – deploy the reverse-proxy stack (proxy + ACME companion + demo backend)
//	setup runtime   – install sysbox and register it in the daemon config
//	setup iface     – pin predictable network interface names
//	setup status    – show the state of the proxy stack's containers
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeNeRoTeX/setup/internal/daemon"
	"github.com/LeNeRoTeX/setup/internal/docker"
	"github.com/LeNeRoTeX/setup/internal/doctor"
	"github.com/LeNeRoTeX/setup/internal/input"
	"github.com/LeNeRoTeX/setup/internal/log"
	"github.com/LeNeRoTeX/setup/internal/manifest"
	"github.com/LeNeRoTeX/setup/internal/netif"
	"github.com/LeNeRoTeX/setup/internal/pkgs"
	"github.com/LeNeRoTeX/setup/internal/proxystack"
	"github.com/LeNeRoTeX/setup/internal/reconcile"
	"github.com/LeNeRoTeX/setup/internal/types"
)

func main() {
	root := &cobra.Command{
		Use:   "setup",
		Short: "Container host provisioning",
		Long: `setup – provision a container host end to end.

Installs the sandboxed runtime and container engine, pins predictable
network interface names, and deploys an automatic-TLS reverse-proxy stack.
Every command converges towards its desired state and is safe to re-run.`,
		SilenceUsage: true,
	}

	root.AddCommand(doctorCmd(), proxyCmd(), runtimeCmd(), ifaceCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// ── doctor ────────────────────────────────────────────────────────────────────

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check host prerequisites",
		Long: `Checks that the host can run the setup workflows: docker CLI and daemon,
the sysbox runtime binary, systemd, and write access to the daemon config.

Each check prints a pass/fail line with a fix hint; the command exits
nonzero when any check failed.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			failures := 0
			for _, r := range doctor.RunChecks() {
				if r.OK {
					log.Okf("%s: %s", r.Name, r.Message)
					continue
				}
				failures++
				log.Errorf("%s: %s", r.Name, r.Message)
				if r.HowToFix != "" {
					log.Infof("fix: %s", r.HowToFix)
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			return nil
		},
	}
}

// ── proxy ─────────────────────────────────────────────────────────────────────

type proxyOptions struct {
	domain, subdomain, email, fqdn string
	manifestPath                   string
	skipInstall                    bool
}

func proxyCmd() *cobra.Command {
	var opts proxyOptions
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Deploy the reverse-proxy stack",
		Long: `Deploys the automatic-TLS reverse-proxy stack:
  1. ensures the docker engine is installed
  2. resolves domain, subdomain, and contact email (flags, environment,
     the running stack's recorded values, or interactive prompts)
  3. converges the shared network, data volumes, and the proxy,
     ACME-companion, and demo containers
  4. reports the per-resource outcome

Values can be supplied non-interactively via --domain/--subdomain/--email
(or --fqdn) and the SETUP_DOMAIN, SETUP_SUBDOMAIN, SETUP_EMAIL, SETUP_FQDN
environment variables. When stdin is a pipe, prompts fall back to the
controlling terminal.

Equivalent to: install_proxy.sh`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runProxy(opts)
		},
	}
	cmd.Flags().StringVar(&opts.domain, "domain", "", "base domain, e.g. example.com")
	cmd.Flags().StringVar(&opts.subdomain, "subdomain", "", "subdomain label for the demo backend, e.g. demo")
	cmd.Flags().StringVar(&opts.email, "email", "", "contact email for certificate registration")
	cmd.Flags().StringVar(&opts.fqdn, "fqdn", "", "fully qualified name (alternative to --domain/--subdomain)")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "ProxyStack manifest overriding the built-in inventory")
	cmd.Flags().BoolVar(&opts.skipInstall, "skip-install", false, "do not attempt to install the docker engine")
	return cmd
}

func runProxy(opts proxyOptions) error {
	if !opts.skipInstall {
		if err := pkgs.EnsureInstalled("ca-certificates", "curl"); err != nil {
			return err
		}
		if err := pkgs.EnsureDockerEngine(); err != nil {
			return err
		}
	}

	var m *types.ProxyStackManifest
	if opts.manifestPath != "" {
		var err error
		if m, err = manifest.Load(opts.manifestPath); err != nil {
			return err
		}
	}

	engine := docker.New()

	ch := input.OpenChannel()
	if ch != nil {
		defer ch.Close()
	}
	resolver := input.NewResolver(ch)

	params, err := resolveProxyParams(resolver, engine, &opts)
	if err != nil {
		return err
	}

	log.Infof("Deploying stack for %s (contact %s)", params.FQDN, params.Email)
	outcomes := reconcile.New(engine).Reconcile(proxystack.Inventory(params, m))
	summarize(outcomes)

	if reconcile.Failed(outcomes) {
		return fmt.Errorf("some resources did not converge")
	}
	log.Okf("Stack deployed – %s will receive a certificate shortly", params.FQDN)
	return nil
}

// resolveProxyParams resolves domain, subdomain, email, and the derived
// FQDN. A --fqdn (or SETUP_FQDN) value seeds derived split sources for
// domain and subdomain, so either entry form works.
func resolveProxyParams(r *input.Resolver, engine *docker.CLI, opts *proxyOptions) (proxystack.Params, error) {
	// The raw FQDN is itself a parameter, just never prompted for. A
	// missing value is fine; composition from domain+subdomain takes over.
	fqdnSeed, err := r.Resolve(input.ParameterSpec{
		Name:      "fqdn-input",
		FlagName:  "fqdn",
		EnvName:   "SETUP_FQDN",
		Sources:   []input.Source{input.Flag(&opts.fqdn), input.Env("SETUP_FQDN")},
		Normalize: input.NormalizeHost,
		Validate:  input.ValidateDomain,
	})
	if err != nil {
		var unresolvable *input.UnresolvableInputError
		if !errors.As(err, &unresolvable) {
			return proxystack.Params{}, err
		}
		fqdnSeed = ""
	}

	if _, err := r.Resolve(input.ParameterSpec{
		Name:     "domain",
		Question: "Base domain (e.g. example.com)",
		FlagName: "domain",
		EnvName:  "SETUP_DOMAIN",
		Sources: []input.Source{
			input.Flag(&opts.domain),
			input.Env("SETUP_DOMAIN"),
			input.Derived(func(map[string]string) (string, error) {
				if fqdnSeed == "" {
					return "", nil
				}
				_, domain, err := input.SplitFQDN(fqdnSeed)
				return domain, err
			}),
			input.Prompt(),
		},
		Normalize: input.NormalizeHost,
		Validate:  input.ValidateDomain,
	}); err != nil {
		return proxystack.Params{}, err
	}

	if _, err := r.Resolve(input.ParameterSpec{
		Name:     "subdomain",
		Question: "Subdomain for the demo backend (e.g. demo)",
		FlagName: "subdomain",
		EnvName:  "SETUP_SUBDOMAIN",
		Sources: []input.Source{
			input.Flag(&opts.subdomain),
			input.Env("SETUP_SUBDOMAIN"),
			input.Derived(func(map[string]string) (string, error) {
				if fqdnSeed == "" {
					return "", nil
				}
				subdomain, _, err := input.SplitFQDN(fqdnSeed)
				return subdomain, err
			}),
			input.Prompt(),
		},
		Normalize: input.NormalizeHost,
		Validate:  input.ValidateLabel,
	}); err != nil {
		return proxystack.Params{}, err
	}

	email, err := r.Resolve(input.ParameterSpec{
		Name:     "email",
		Question: "Contact email for certificate registration",
		FlagName: "email",
		EnvName:  "SETUP_EMAIL",
		Sources: []input.Source{
			input.Flag(&opts.email),
			input.Env("SETUP_EMAIL"),
			// Recover the address a previous run baked into the running
			// companion container.
			input.Derived(func(map[string]string) (string, error) {
				env, err := engine.InspectEnv(proxystack.CompanionContainer)
				if err != nil {
					return "", err
				}
				return env["DEFAULT_EMAIL"], nil
			}),
			input.Prompt(),
		},
		Normalize: input.NormalizeEmail,
		Validate:  input.ValidateEmail,
	})
	if err != nil {
		return proxystack.Params{}, err
	}

	fqdn, err := r.Resolve(input.ParameterSpec{
		Name:     "fqdn",
		FlagName: "fqdn",
		EnvName:  "SETUP_FQDN",
		Sources: []input.Source{
			input.Derived(func(resolved map[string]string) (string, error) {
				return input.JoinFQDN(resolved["subdomain"], resolved["domain"]), nil
			}),
		},
		Normalize: input.NormalizeHost,
		Validate:  input.ValidateDomain,
	})
	if err != nil {
		return proxystack.Params{}, err
	}

	return proxystack.Params{FQDN: fqdn, Email: email}, nil
}

func summarize(outcomes []reconcile.Outcome) {
	for _, o := range outcomes {
		if o.Action == reconcile.ActionFailed {
			log.Errorf("%-9s %-12s %s: %v", o.Kind, o.Name, o.Action, o.Err)
		} else {
			log.Infof("%-9s %-12s %s", o.Kind, o.Name, o.Action)
		}
	}
}

// ── runtime ───────────────────────────────────────────────────────────────────

func runtimeCmd() *cobra.Command {
	var makeDefault, dropin, restart bool
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Install sysbox and register it in the daemon config",
		Long: `Installs the sysbox runtime package if missing, then registers
sysbox-runc under "runtimes" in ` + daemon.ConfigPath + `. Keys already
present in the config are preserved; the previous file is kept as a
timestamped backup.

--default additionally sets "default-runtime" so new containers use
sysbox without an explicit --runtime flag. --dropin writes the systemd
drop-in that strips a packaged --default-runtime flag, leaving the config
file authoritative.

Equivalent to: install_sysbox.sh`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runRuntime(makeDefault, dropin, restart)
		},
	}
	cmd.Flags().BoolVar(&makeDefault, "default", false, "make sysbox-runc the daemon's default runtime")
	cmd.Flags().BoolVar(&dropin, "dropin", false, "write the systemd drop-in removing the packaged --default-runtime flag")
	cmd.Flags().BoolVar(&restart, "restart", false, "restart the docker unit after registering")
	return cmd
}

func runRuntime(makeDefault, dropin, restart bool) error {
	if err := pkgs.EnsureSysbox(); err != nil {
		return err
	}

	ops := daemon.RegisterRuntimeOps("sysbox-runc", pkgs.SysboxRuntimeBin, makeDefault)
	if err := daemon.MergePatch(daemon.ConfigPath, ops); err != nil {
		return err
	}
	log.Okf("sysbox-runc registered in %s", daemon.ConfigPath)

	if dropin {
		if err := daemon.WriteDropin(daemon.DropinPath); err != nil {
			return err
		}
	}
	if restart {
		return daemon.RestartEngine()
	}
	log.Info("Restart the engine to apply: sudo systemctl restart docker")
	return nil
}

// ── iface ─────────────────────────────────────────────────────────────────────

func ifaceCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "iface",
		Short: "Pin predictable network interface names",
		Long: `Writes a systemd .link file per physical interface under
` + netif.LinkDir + `, renaming them <prefix>0, <prefix>1, ... by MAC
address. Existing link files are never overwritten. The new names apply
on the next reboot.

Equivalent to: rename_interfaces.sh`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runIface(prefix)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "lan", "interface name prefix")
	return cmd
}

func runIface(prefix string) error {
	if err := input.ValidateLabel(prefix); err != nil {
		return fmt.Errorf("invalid prefix: %w", err)
	}
	ifaces, err := netif.PhysicalInterfaces()
	if err != nil {
		return err
	}
	if len(ifaces) == 0 {
		log.Skip("No physical interfaces found")
		return nil
	}
	names, err := netif.EnsureLinks(ifaces, prefix, netif.LinkDir)
	if err != nil {
		return err
	}
	log.Okf("%d interface(s) pinned: %v – reboot to apply", len(names), names)
	return nil
}

// ── status ────────────────────────────────────────────────────────────────────

func statusCmd() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the proxy stack's containers",
		Long: `Prints the engine-reported state of every container in the proxy
stack inventory ("running", "exited", or "absent").`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStatus(manifestPath)
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "ProxyStack manifest overriding the built-in inventory")
	return cmd
}

func runStatus(manifestPath string) error {
	var m *types.ProxyStackManifest
	if manifestPath != "" {
		var err error
		if m, err = manifest.Load(manifestPath); err != nil {
			return err
		}
	}

	engine := docker.New()
	specs := proxystack.Inventory(proxystack.Params{}, m)
	for _, name := range proxystack.ContainerNames(specs) {
		state := engine.ContainerState(name)
		switch state {
		case "running":
			log.Okf("%-12s %s", name, state)
		case "absent":
			log.Skipf("%-12s %s", name, state)
		default:
			log.Warnf("%-12s %s", name, state)
		}
	}

	doc, err := daemon.Read(daemon.ConfigPath)
	if err != nil {
		log.Warnf("Cannot read daemon config: %v", err)
		return nil
	}
	if runtimes, ok := doc["runtimes"].(map[string]any); ok {
		if _, ok := runtimes["sysbox-runc"]; ok {
			log.Ok("sysbox-runc registered in daemon config")
		}
	}
	if def, ok := doc["default-runtime"].(string); ok {
		log.Infof("default runtime: %s", def)
	}
	return nil
}
