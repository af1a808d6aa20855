package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestIndexError(t *testing.T) {
	err := NewIndexError("set", "common..ok", ErrInvalidKeyPath).WithLanguage("en")

	if err.Type != ErrorTypeIndex {
		t.Errorf("Expected Type to be ErrorTypeIndex, got %v", err.Type)
	}

	if !errors.Is(err, ErrInvalidKeyPath) {
		t.Errorf("Expected error to unwrap to ErrInvalidKeyPath")
	}

	expectedMsg := `index set failed for "common..ok" [en]: invalid key path`
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestIndexErrorAs(t *testing.T) {
	var wrapped error = fmt.Errorf("batch op 2: %w", NewIndexError("delete", "a.b", ErrNotFound))

	var indexErr *IndexError
	if !errors.As(wrapped, &indexErr) {
		t.Fatal("Expected errors.As to find IndexError")
	}
	if indexErr.KeyPath != "a.b" {
		t.Errorf("Expected KeyPath a.b, got %s", indexErr.KeyPath)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("fr", "base language has no keys", nil)

	expectedMsg := "validation failed: base language has no keys (language fr)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestFileWatchErrorClassification(t *testing.T) {
	notExist := NewFileWatchError("read", "/locales/en.json", os.ErrNotExist)
	if notExist.Type != ErrorTypeFileNotFound {
		t.Errorf("Expected ErrorTypeFileNotFound, got %v", notExist.Type)
	}

	perm := NewFileWatchError("read", "/locales/en.json", os.ErrPermission)
	if perm.Type != ErrorTypePermission {
		t.Errorf("Expected ErrorTypePermission, got %v", perm.Type)
	}

	missingDir := NewFileWatchError("start", "/locales", ErrDirectoryMissing)
	if missingDir.Type != ErrorTypeFileNotFound {
		t.Errorf("Expected ErrorTypeFileNotFound for missing directory, got %v", missingDir.Type)
	}

	other := NewFileWatchError("watch", "/locales", errors.New("too many open files"))
	if other.Type != ErrorTypeFileWatch {
		t.Errorf("Expected ErrorTypeFileWatch, got %v", other.Type)
	}
}

func TestParseError(t *testing.T) {
	underlying := errors.New("unexpected character '}' at line 3")
	err := NewParseError("/locales/de.json", underlying)

	if err.Type != ErrorTypeParse {
		t.Errorf("Expected ErrorTypeParse, got %v", err.Type)
	}
	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "file parse failed for /locales/de.json: unexpected character '}' at line 3"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestSyncError(t *testing.T) {
	err := NewSyncError("en", "/locales/en.json", ErrStructuralConflict).WithKey("a.b")

	if !errors.Is(err, ErrStructuralConflict) {
		t.Errorf("Expected error to unwrap to ErrStructuralConflict")
	}

	expectedMsg := `sync of en failed for key "a.b" in /locales/en.json: structural conflict`
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be positive")
	err := NewConfigError("auto_sync.debounce_ms", "-1", underlying)

	expectedMsg := "config error for field auto_sync.debounce_ms (value -1): must be positive"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	multi := NewMultiError([]error{err1, nil, err2})
	if len(multi.Errors) != 2 {
		t.Errorf("Expected 2 errors after filtering nil, got %d", len(multi.Errors))
	}
	if !errors.Is(multi, err2) {
		t.Errorf("Expected errors.Is to find err2 through Unwrap() []error")
	}

	single := NewMultiError([]error{err1})
	if single.Error() != "error 1" {
		t.Errorf("Expected single error message, got %q", single.Error())
	}

	if NewMultiError(nil).ErrorOrNil() != nil {
		t.Errorf("Expected ErrorOrNil to return nil for empty MultiError")
	}
}
