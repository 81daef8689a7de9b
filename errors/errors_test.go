package errors

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindMalformedModule,
				Path:   []string{"code section", "body 3"},
				Detail: "unexpected end of input",
			},
			contains: []string{"[decode]", "malformed_module", "code section.body 3", "unexpected end of input"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseExtract,
				Kind:  KindUnsupported,
			},
			contains: []string{"[extract]", "unsupported"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindIOFailure,
				Detail: "read input",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "io_failure", "read input", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !containsSubstring(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	// Test with errors.Unwrap
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDebugInfo,
		Kind:  KindUnsupported,
		Path:  []string{"foo"},
	}

	// Same phase and kind
	if !err.Is(&Error{Phase: PhaseDebugInfo, Kind: KindUnsupported}) {
		t.Error("Is should match same phase and kind")
	}

	// Different phase
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindUnsupported}) {
		t.Error("Is should not match different phase")
	}

	// Different kind
	if err.Is(&Error{Phase: PhaseDebugInfo, Kind: KindDuplicate}) {
		t.Error("Is should not match different kind")
	}

	// Test with errors.Is
	target := &Error{Phase: PhaseDebugInfo, Kind: KindUnsupported}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindMalformedModule).
		Path("type section", "entry 2").
		Value(0x61).
		Cause(cause).
		Detail("unexpected form byte 0x%02x", 0x61).
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindMalformedModule {
		t.Errorf("Kind = %v, want %v", err.Kind, KindMalformedModule)
	}
	if len(err.Path) != 2 || err.Path[0] != "type section" || err.Path[1] != "entry 2" {
		t.Errorf("Path = %v, want [type section, entry 2]", err.Path)
	}
	if err.Value != 0x61 {
		t.Errorf("Value = %v, want 0x61", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "unexpected form byte 0x61" {
		t.Errorf("Detail = %v, want 'unexpected form byte 0x61'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("MalformedModule", func(t *testing.T) {
		err := MalformedModule("section %d truncated", 10)
		if err.Phase != PhaseDecode || err.Kind != KindMalformedModule {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if err.Detail != "section 10 truncated" {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("MalformedDebugInfo", func(t *testing.T) {
		err := MalformedDebugInfo("abbrev table truncated")
		if err.Phase != PhaseDebugInfo || err.Kind != KindMalformedDebugInfo {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseDebugInfo, "non-reference type attribute")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := Duplicate(PhaseDecode, "function %d named both %q and %q", 4, "a", "b")
		if err.Kind != KindDuplicate {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDuplicate)
		}
		if !containsSubstring(err.Detail, "function 4") {
			t.Errorf("Detail = %v, should contain index", err.Detail)
		}
	})

	t.Run("InvalidData", func(t *testing.T) {
		err := InvalidData(PhaseExtract, []string{"param 1"}, "no type attribute")
		if err.Kind != KindInvalidData {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidData)
		}
	})

	t.Run("Load", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := Load("read a.wasm", cause)
		if err.Phase != PhaseLoad || err.Kind != KindIOFailure {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if !errors.Is(err, cause) {
			t.Error("cause not wrapped")
		}
	})
}

func containsSubstring(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > 0 && containsSubstringHelper(s, substr)))
}

func containsSubstringHelper(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
