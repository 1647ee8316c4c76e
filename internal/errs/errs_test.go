package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("Message only", func(t *testing.T) {
		err := New(KindNotFound, "request not found")
		assert.Equal(t, "request not found", err.Error())
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("Field prefix", func(t *testing.T) {
		err := NewField(KindInvalidInput, "username", "must not be empty")
		assert.Equal(t, "username: must not be empty", err.Error())
	})

	t.Run("Wrapped cause is unwrappable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(KindInternal, cause, "failed to store record")

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, KindInternal, KindOf(err))
	})

	t.Run("Formatted message", func(t *testing.T) {
		err := Newf(KindConflict, "group %q already exists", "sales")
		assert.Equal(t, `group "sales" already exists`, err.Error())
	})
}

func TestKindOf(t *testing.T) {
	t.Run("Unclassified errors are internal", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	})

	t.Run("Classified error wrapped by fmt.Errorf keeps its kind", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(KindForbidden, "protected"))
		assert.Equal(t, KindForbidden, KindOf(err))
		assert.True(t, IsKind(err, KindForbidden))
		assert.False(t, IsKind(err, KindNotFound))
	})
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindNotFound:     "not_found",
		KindConflict:     "conflict",
		KindInvalidState: "invalid_state",
		KindInvalidInput: "invalid_input",
		KindUnauthorized: "unauthorized",
		KindForbidden:    "forbidden",
		KindInternal:     "internal",
		KindUnknown:      "unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
