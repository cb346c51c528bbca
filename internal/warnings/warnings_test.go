package warnings_test

import "github.com/keurnel/x86asm/internal/warnings"
import "testing"

func TestSet_Defaults(t *testing.T) {
	s := warnings.NewSet(warnings.Builtin)
	if !s.IsEnabled("bounded-data-overflow") {
		t.Fatalf("bounded-data-overflow should default on")
	}
	if s.IsEnabled("float-denorm") {
		t.Fatalf("float-denorm should default off")
	}
	if !s.IsError("short-jump-out-of-range") {
		t.Fatalf("short-jump-out-of-range should default to error")
	}
}

func TestSet_ApplyEnableDisable(t *testing.T) {
	s := warnings.NewSet(warnings.Builtin)
	s.Apply("-bounded-data-overflow")
	if s.IsEnabled("bounded-data-overflow") {
		t.Fatalf("expected bounded-data-overflow disabled after -name")
	}
	s.Apply("+bounded-data-overflow")
	if !s.IsEnabled("bounded-data-overflow") {
		t.Fatalf("expected bounded-data-overflow re-enabled after +name")
	}
}

func TestSet_ErrorPromotion(t *testing.T) {
	s := warnings.NewSet(warnings.Builtin)
	if s.IsError("float-overflow") {
		t.Fatalf("float-overflow should not start as error")
	}
	s.Apply("error=float-overflow")
	if !s.IsError("float-overflow") {
		t.Fatalf("expected float-overflow promoted to error")
	}
}

func TestSet_PrefixMatching(t *testing.T) {
	s := warnings.NewSet(warnings.Builtin)
	s.Apply("-float-")
	if s.IsEnabled("float-overflow") {
		t.Fatalf("float-overflow should be disabled by the float- prefix")
	}
}

func TestSet_NoneAndAll(t *testing.T) {
	s := warnings.NewSet(warnings.Builtin)
	s.Apply("none")
	for _, name := range s.Classes() {
		if s.IsEnabled(name) {
			t.Fatalf("%s still enabled after 'none'", name)
		}
	}
	s.Apply("all")
	for _, name := range s.Classes() {
		if !s.IsEnabled(name) {
			t.Fatalf("%s still disabled after 'all'", name)
		}
	}
}

func TestSet_PushPopRestoresState(t *testing.T) {
	s := warnings.NewSet(warnings.Builtin)
	s.Snapshot()
	s.Apply("-bounded-data-overflow")
	s.Push()
	s.Apply("*all") // not a real verb combo, but exercises unmatched tokens safely
	if raised := s.Pop(); raised {
		t.Fatalf("did not expect warn-stack-empty on a balanced pop")
	}
	if s.IsEnabled("bounded-data-overflow") {
		t.Fatalf("expected bounded-data-overflow to remain disabled after pop restores the pushed state")
	}
}

func TestSet_PopBelowBottomRaisesStackEmptyAndResetsAllOn(t *testing.T) {
	s := warnings.NewSet(warnings.Builtin)
	s.Snapshot()
	s.Apply("-bounded-data-overflow")
	if raised := s.Pop(); !raised {
		t.Fatalf("expected warn-stack-empty popping the permanent bottom snapshot")
	}
	for _, name := range s.Classes() {
		if !s.IsEnabled(name) {
			t.Fatalf("%s should be on after the stack-empty reset", name)
		}
	}
}

func TestSet_UnknownNameReportsNoMatch(t *testing.T) {
	s := warnings.NewSet(warnings.Builtin)
	if s.Apply("+does-not-exist") {
		t.Fatalf("expected Apply to report no match for an unregistered class")
	}
}
