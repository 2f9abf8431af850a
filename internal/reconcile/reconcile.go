// Package reconcile converges a declared inventory of named infrastructure
// resources (networks, volumes, containers) against live host state.
//
// Networks and volumes are append-only: an existing resource is never
// inspected or modified. Containers are replace-on-sight: an existing
// container with a declared name is force-removed and recreated from its
// desired spec, so the declared spec always wins. A failure on one
// resource never stops the rest of the sequence.
package reconcile

import (
	"fmt"

	"github.com/LeNeRoTeX/setup/internal/log"
)

// Kind classifies a declared resource.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindVolume    Kind = "volume"
	KindContainer Kind = "container"
)

// Mount is a bind or volume mount on a container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ContainerConfig is the desired configuration of one container.
type ContainerConfig struct {
	Image   string
	Network string            // network to attach, empty for the default
	Ports   []string          // published ports, "host:container" form
	Mounts  []Mount
	Env     map[string]string
	Labels  map[string]string
	Restart string // restart policy, e.g. "always", "unless-stopped"
}

// ResourceSpec declares one desired resource. Name is the reconciliation
// key: two specs with the same kind and name describe the same logical
// resource across runs.
type ResourceSpec struct {
	Kind      Kind
	Name      string
	Container *ContainerConfig // set only for KindContainer
}

// Action is what the reconciler did for one resource.
type Action string

const (
	ActionCreated   Action = "created"
	ActionRecreated Action = "recreated"
	ActionUnchanged Action = "unchanged"
	ActionFailed    Action = "failed"
)

// Outcome records the result of reconciling one resource.
type Outcome struct {
	Kind   Kind
	Name   string
	Action Action
	Err    error
}

// Engine is the container engine the reconciler drives. All operations
// refer to resources by name; ContainerExists matches containers in any
// state, and RemoveContainer is a forceful removal.
type Engine interface {
	NetworkExists(name string) (bool, error)
	CreateNetwork(name string) error
	VolumeExists(name string) (bool, error)
	CreateVolume(name string) error
	ContainerExists(name string) (bool, error)
	RemoveContainer(name string) error
	PullImage(ref string) error
	RunContainer(name string, cfg ContainerConfig) error
}

// Reconciler converges declared specs through an Engine.
type Reconciler struct {
	Engine Engine
}

// New returns a Reconciler backed by the given engine.
func New(engine Engine) *Reconciler {
	return &Reconciler{Engine: engine}
}

// Reconcile processes specs strictly in declaration order and returns one
// outcome per spec. It never aborts early: a failed resource is recorded
// and the remainder of the sequence is still attempted.
//
// A container attaching to a network that is declared in the same
// sequence must appear after that network's entry; such a container is
// failed without touching the engine when the ordering is violated.
func (r *Reconciler) Reconcile(specs []ResourceSpec) []Outcome {
	declaredNets := make(map[string]bool)
	for _, s := range specs {
		if s.Kind == KindNetwork {
			declaredNets[s.Name] = true
		}
	}

	outcomes := make([]Outcome, 0, len(specs))
	seenNets := make(map[string]bool)

	for _, spec := range specs {
		var outcome Outcome
		switch spec.Kind {
		case KindNetwork:
			outcome = r.ensureNetwork(spec)
			seenNets[spec.Name] = true
		case KindVolume:
			outcome = r.ensureVolume(spec)
		case KindContainer:
			outcome = r.replaceContainer(spec, declaredNets, seenNets)
		default:
			outcome = failed(spec, fmt.Errorf("unknown resource kind %q", spec.Kind))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// ensureNetwork creates the network only when absent. An existing network
// is left entirely untouched, whatever its configuration.
func (r *Reconciler) ensureNetwork(spec ResourceSpec) Outcome {
	exists, err := r.Engine.NetworkExists(spec.Name)
	if err != nil {
		return failed(spec, fmt.Errorf("inspect network %s: %w", spec.Name, err))
	}
	if exists {
		log.Skipf("Network %s already exists", spec.Name)
		return done(spec, ActionUnchanged)
	}
	log.Infof("Creating network %s", spec.Name)
	if err := r.Engine.CreateNetwork(spec.Name); err != nil {
		return failed(spec, fmt.Errorf("create network %s: %w", spec.Name, err))
	}
	log.Okf("Network %s created", spec.Name)
	return done(spec, ActionCreated)
}

// ensureVolume mirrors ensureNetwork for volumes.
func (r *Reconciler) ensureVolume(spec ResourceSpec) Outcome {
	exists, err := r.Engine.VolumeExists(spec.Name)
	if err != nil {
		return failed(spec, fmt.Errorf("inspect volume %s: %w", spec.Name, err))
	}
	if exists {
		log.Skipf("Volume %s already exists", spec.Name)
		return done(spec, ActionUnchanged)
	}
	log.Infof("Creating volume %s", spec.Name)
	if err := r.Engine.CreateVolume(spec.Name); err != nil {
		return failed(spec, fmt.Errorf("create volume %s: %w", spec.Name, err))
	}
	log.Okf("Volume %s created", spec.Name)
	return done(spec, ActionCreated)
}

// replaceContainer removes any container holding the declared name (in
// any state) and runs a fresh one from the desired spec. The observed
// configuration is never consulted; presence alone triggers replacement.
func (r *Reconciler) replaceContainer(spec ResourceSpec, declaredNets, seenNets map[string]bool) Outcome {
	cfg := spec.Container
	if cfg == nil {
		return failed(spec, fmt.Errorf("container %s has no desired configuration", spec.Name))
	}
	if cfg.Network != "" && declaredNets[cfg.Network] && !seenNets[cfg.Network] {
		return failed(spec, fmt.Errorf("container %s attaches to network %s declared later in the sequence", spec.Name, cfg.Network))
	}

	// Refresh the image first so the replacement gap stays short. Pull
	// failures are non-fatal: the local image, if present, still serves.
	if err := r.Engine.PullImage(cfg.Image); err != nil {
		log.Warnf("Pull %s failed (using local image if present): %v", cfg.Image, err)
	}

	exists, err := r.Engine.ContainerExists(spec.Name)
	if err != nil {
		return failed(spec, fmt.Errorf("inspect container %s: %w", spec.Name, err))
	}
	if exists {
		log.Infof("Removing existing container %s", spec.Name)
		// Stop/removal errors are ignored; the subsequent run surfaces
		// any name conflict that actually matters.
		if err := r.Engine.RemoveContainer(spec.Name); err != nil {
			log.Warnf("Remove %s: %v", spec.Name, err)
		}
	}

	log.Infof("Starting container %s (%s)", spec.Name, cfg.Image)
	if err := r.Engine.RunContainer(spec.Name, *cfg); err != nil {
		return failed(spec, fmt.Errorf("run container %s: %w", spec.Name, err))
	}

	if exists {
		log.Okf("Container %s recreated", spec.Name)
		return done(spec, ActionRecreated)
	}
	log.Okf("Container %s created", spec.Name)
	return done(spec, ActionCreated)
}

// Failed reports whether any outcome in the batch failed.
func Failed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Action == ActionFailed {
			return true
		}
	}
	return false
}

func done(spec ResourceSpec, action Action) Outcome {
	return Outcome{Kind: spec.Kind, Name: spec.Name, Action: action}
}

func failed(spec ResourceSpec, err error) Outcome {
	log.Errorf("%s %s: %v", spec.Kind, spec.Name, err)
	return Outcome{Kind: spec.Kind, Name: spec.Name, Action: ActionFailed, Err: err}
}
