package typeid

import (
	"strings"
	"testing"
)

func TestNewPathID(t *testing.T) {
	id := NewPathID()
	if !strings.HasPrefix(id, PrefixPath+"_") {
		t.Fatalf("expected %q prefix, got %q", PrefixPath, id)
	}
	if err := Validate(id, PrefixPath); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if NewPathID() == id {
		t.Error("expected unique ids")
	}
}

func TestValidateWrongPrefix(t *testing.T) {
	id := NewGroupID()
	if err := Validate(id, PrefixPath); err == nil {
		t.Error("expected prefix mismatch error")
	}
	if HasPrefix(id, PrefixPath) {
		t.Error("group id should not carry the path prefix")
	}
	if !HasPrefix(id, PrefixGroup) {
		t.Error("group id should carry the group prefix")
	}
}

func TestValidateGarbage(t *testing.T) {
	if err := Validate("not an id", PrefixPath); err == nil {
		t.Error("expected parse error")
	}
}
