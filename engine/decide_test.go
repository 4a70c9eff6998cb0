package engine

import (
	"strings"
	"testing"

	"github.com/dstack-validator/updater/types"
)

const testHash = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func runningVM(appID string) Observation {
	return Observation{Found: true, VM: types.VMInstance{
		ID:     "vm-1",
		Name:   "validator_vm",
		Status: "running",
		AppID:  appID,
	}}
}

func TestDecideTable(t *testing.T) {
	tests := []struct {
		name       string
		obs        Observation
		firstRun   bool
		wantAction Action
		wantAdopt  bool
	}{
		{
			name:       "no VM creates",
			obs:        Observation{},
			wantAction: ActionCreate,
		},
		{
			name: "stopped VM recreates even on hash match",
			obs: Observation{Found: true, VM: types.VMInstance{
				ID: "vm-1", Status: "stopped", AppID: testHash[:40],
			}},
			wantAction: ActionRecreate,
		},
		{
			name: "exited VM recreates",
			obs: Observation{Found: true, VM: types.VMInstance{
				ID: "vm-1", Status: "exited", AppID: testHash[:40],
			}},
			wantAction: ActionRecreate,
		},
		{
			name: "errored VM recreates",
			obs: Observation{Found: true, VM: types.VMInstance{
				ID: "vm-1", Status: "error", AppID: testHash[:40],
			}},
			wantAction: ActionRecreate,
		},
		{
			name:       "running without app id recreates",
			obs:        runningVM(""),
			wantAction: ActionRecreate,
		},
		{
			name:       "running with matching app id keeps",
			obs:        runningVM(testHash[:40]),
			wantAction: ActionKeep,
		},
		{
			name:       "matching app id on first run adopts",
			obs:        runningVM(testHash[:40]),
			firstRun:   true,
			wantAction: ActionKeep,
			wantAdopt:  true,
		},
		{
			name:       "hash drift recreates",
			obs:        runningVM(strings.Repeat("f", 40)),
			wantAction: ActionRecreate,
		},
		{
			name:       "full-length app id compared truncated",
			obs:        runningVM(testHash),
			wantAction: ActionKeep,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.obs, testHash, tc.firstRun)
			if d.Action != tc.wantAction {
				t.Fatalf("action %s, want %s (%s)", d.Action, tc.wantAction, d.Reason)
			}
			if d.Adopt != tc.wantAdopt {
				t.Fatalf("adopt %v, want %v (%s)", d.Adopt, tc.wantAdopt, d.Reason)
			}
			if d.Reason == "" {
				t.Fatal("decision without a reason")
			}
		})
	}
}

func TestActionString(t *testing.T) {
	for action, want := range map[Action]string{
		ActionCreate:   "create",
		ActionKeep:     "keep",
		ActionRecreate: "recreate",
		Action(42):     "unknown",
	} {
		if got := action.String(); got != want {
			t.Fatalf("Action(%d).String() = %q, want %q", action, got, want)
		}
	}
}
