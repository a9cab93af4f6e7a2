package app

import (
	"errors"
	"strings"
	"testing"
)

func TestOperationError_Error(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{"with target", NewOperationError("update", "appearance.theme.primaryColor", cause), "update appearance.theme.primaryColor: disk full"},
		{"without target", NewOperationError("reload", "", cause), "reload: disk full"},
		{"without cause", NewOperationError("update", "a.b", nil), "update a.b"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	err := error(NewOperationError("update", "a.b", ErrClosed))
	if !errors.Is(err, ErrClosed) {
		t.Error("errors.Is should see the wrapped cause")
	}
	var nilErr *OperationError
	if nilErr.Unwrap() != nil {
		t.Error("nil Unwrap should be nil")
	}
}

func TestRecoveredPanicError(t *testing.T) {
	err := &RecoveredPanicError{Value: "boom"}
	if err.Error() != "panic: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorList(t *testing.T) {
	var list ErrorList
	if list.AsError() != nil {
		t.Error("empty list should be nil")
	}

	list.Add(nil)
	list.Add(ErrNotRunning)
	if list.Len() != 1 || list.Error() != ErrNotRunning.Error() {
		t.Errorf("single error list = %d, %q", list.Len(), list.Error())
	}

	list.Add(ErrClosed)
	err := list.AsError()
	if !strings.HasPrefix(err.Error(), "2 errors") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrClosed) || !errors.Is(err, ErrNotRunning) {
		t.Error("errors.Is should match every collected error")
	}
}
