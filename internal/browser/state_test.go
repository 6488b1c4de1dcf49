package browser

import "testing"

func TestStateStringCoversAllValues(t *testing.T) {
	cases := map[State]string{
		StateUninitialized: "uninitialized",
		StateStarting:      "starting",
		StateReady:         "ready",
		StateDraining:      "draining",
		StateRestarting:    "restarting",
		StateShutdown:      "shutdown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestStateStringUnknownValue(t *testing.T) {
	if got := State(99).String(); got != "unknown" {
		t.Errorf("expected unknown for unmapped state, got %q", got)
	}
}
