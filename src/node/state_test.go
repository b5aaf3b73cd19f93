package node

import "testing"

func TestStateTransitions(t *testing.T) {
	var s state

	if _, ok := s.transition(Running); ok {
		t.Fatal("NotStarted -> Running should be refused")
	}

	steps := []State{Bootstrapping, Running, ShuttingDown, Stopped}
	for _, next := range steps {
		if _, ok := s.transition(next); !ok {
			t.Fatalf("transition to %s refused from %s", next, s.getState())
		}
	}

	if s.fail("too late") {
		t.Fatal("Stopped should not move to Failed")
	}
	if !s.getState().IsTerminal() {
		t.Fatal("Stopped should be terminal")
	}
}

func TestStateFailKeepsFirstReason(t *testing.T) {
	var s state
	s.transition(Bootstrapping)

	if !s.fail("bootstrap timeout") {
		t.Fatal("Bootstrapping -> Failed should be allowed")
	}
	if s.fail("another reason") {
		t.Fatal("Failed is terminal")
	}
	if s.failureReason() != "bootstrap timeout" {
		t.Fatalf("reason should be 'bootstrap timeout', not '%s'", s.failureReason())
	}
	if s.getState() != Failed {
		t.Fatalf("state should be Failed, not %s", s.getState())
	}
}

func TestNotStartedCannotFail(t *testing.T) {
	var s state
	if s.fail("nope") {
		t.Fatal("NotStarted -> Failed should be refused")
	}
}
