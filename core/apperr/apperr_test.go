package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", Conflict("dispatch", "tanker %s is %s", "t1", "Maintenance"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Contains(t, err.Error(), "tanker t1 is Maintenance")
}

func TestUpstreamKeepsClassification(t *testing.T) {
	nf := NotFound("get", "village", "v1")
	assert.Same(t, nf, Upstream("batch", nf))

	raw := errors.New("connection reset")
	up := Upstream("batch", raw)
	assert.ErrorIs(t, up, ErrUpstream)
	assert.ErrorIs(t, up, raw)
	assert.Nil(t, Upstream("noop", nil))
}

func TestKindOfUnclassified(t *testing.T) {
	if k := KindOf(errors.New("plain")); k != KindUnknown {
		t.Fatalf("expected unknown kind, got %v", k)
	}
}
