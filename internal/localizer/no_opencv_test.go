//go:build !opencv

package localizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_OpenCVWithoutTag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendOpenCV
	_, err := New(cfg, t.TempDir())
	assert.ErrorIs(t, err, ErrNoOpenCV)
}
