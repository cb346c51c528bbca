package labels_test

import (
	"testing"

	"github.com/keurnel/x86asm/internal/labels"
)

func TestMapStore_DefineAndLookup(t *testing.T) {
	s := labels.NewMapStore()
	if _, _, defined := s.Lookup("start"); defined {
		t.Fatal("expected undefined symbol before Define")
	}

	s.Define("start", 1, 0x10)
	seg, off, defined := s.Lookup("start")
	if !defined || seg != 1 || off != 0x10 {
		t.Fatalf("unexpected lookup result: seg=%d off=%d defined=%v", seg, off, defined)
	}
}

func TestMapStore_Extern(t *testing.T) {
	s := labels.NewMapStore()
	if s.IsExtern("printf") {
		t.Fatal("expected undeclared symbol to not be extern")
	}
	s.Declare("printf", true)
	if !s.IsExtern("printf") {
		t.Fatal("expected Declare(extern=true) to mark the symbol extern")
	}
	if _, _, defined := s.Lookup("printf"); defined {
		t.Fatal("declaring extern must not define a position")
	}
}

func TestMapStore_LocalScope(t *testing.T) {
	s := labels.NewMapStore()
	if _, ok := s.LocalScope(); ok {
		t.Fatal("expected no scope set initially")
	}
	s.SetMangle("loop_top")
	scope, ok := s.LocalScope()
	if !ok || scope != "loop_top" {
		t.Fatalf("unexpected scope: %q, %v", scope, ok)
	}
}
