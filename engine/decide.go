package engine

import (
	"fmt"

	"github.com/dstack-validator/updater/manifest"
	"github.com/dstack-validator/updater/types"
)

// Observation is what one Status query revealed about the managed VM.
type Observation struct {
	Found bool
	VM    types.VMInstance
}

// Action is the per-cycle verdict.
type Action int

const (
	ActionCreate Action = iota
	ActionKeep
	ActionRecreate
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionKeep:
		return "keep"
	case ActionRecreate:
		return "recreate"
	}
	return "unknown"
}

// Decision is an Action plus the reasoning that goes into the cycle log.
// Adopt is set when a first-run Keep is recording an existing VM that
// survived an updater restart.
type Decision struct {
	Action Action
	Adopt  bool
	Reason string
}

// downStatuses are the VM states that always force recreation, whatever
// the hash comparison would say.
var downStatuses = map[string]bool{
	"stopped": true,
	"exited":  true,
	"killed":  true,
	"error":   true,
}

// Decide maps an observation and the freshly computed compose hash to an
// action. Rules, in evaluation order:
//
//	no VM                        → create
//	VM down (stopped/exited/...) → recreate
//	running, no app id           → recreate (inconsistent VMM state)
//	running, app id == hash[:40] → keep (adopt on first run)
//	running, app id != hash[:40] → recreate
func Decide(obs Observation, newHash string, firstRun bool) Decision {
	if !obs.Found {
		return Decision{Action: ActionCreate, Reason: "no existing VM"}
	}
	if downStatuses[obs.VM.Status] {
		return Decision{Action: ActionRecreate, Reason: fmt.Sprintf("VM is in %q state", obs.VM.Status)}
	}
	if obs.VM.AppID == "" {
		return Decision{Action: ActionRecreate, Reason: "running VM reports no app id"}
	}

	existing := manifest.TruncateAppID(obs.VM.AppID)
	computed := manifest.TruncateAppID(newHash)
	if existing == computed {
		if firstRun {
			return Decision{Action: ActionKeep, Adopt: true,
				Reason: fmt.Sprintf("existing VM matches compose hash %s, adopting", computed)}
		}
		return Decision{Action: ActionKeep, Reason: fmt.Sprintf("compose hash %s unchanged", computed)}
	}
	return Decision{Action: ActionRecreate,
		Reason: fmt.Sprintf("compose hash drift: existing=%s computed=%s", existing, computed)}
}
