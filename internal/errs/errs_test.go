package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestE_NilPassesThrough(t *testing.T) {
	if err := E(KindQuery, "list schemas", nil); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestKindOf_SurvivesWrapping(t *testing.T) {
	base := Filesystem("reset OUTPUT/sales", fs.ErrPermission)
	wrapped := fmt.Errorf("export schema sales: %w", base)

	if got := KindOf(wrapped); got != KindFilesystem {
		t.Errorf("Expected filesystem kind, got %s", got)
	}
	if !errors.Is(wrapped, fs.ErrPermission) {
		t.Error("Expected the underlying error to stay reachable with errors.Is")
	}
	if !Is(wrapped, KindFilesystem) {
		t.Error("Expected Is to match the filesystem kind")
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindUnknown {
		t.Errorf("Expected unknown kind, got %s", got)
	}
	if Is(nil, KindUnknown) {
		t.Error("nil must not match any kind")
	}
}

func TestKind_Fatal(t *testing.T) {
	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{KindConnectivity, true},
		{KindQuery, true},
		{KindFilesystem, true},
		{KindPoolTimeout, true},
		{KindConfig, true},
		{KindStatementExecution, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Fatal(); got != tt.fatal {
			t.Errorf("%s: expected Fatal()=%v, got %v", tt.kind, tt.fatal, got)
		}
	}
}

func TestError_Message(t *testing.T) {
	err := Connectivity("connect to source", errors.New("dial tcp: refused"))
	if got := err.Error(); got != "connect to source: dial tcp: refused" {
		t.Errorf("unexpected message %q", got)
	}
}
