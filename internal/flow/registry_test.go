package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/flowrunner/internal/config"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"login", "register"}, Names())
}

func TestBuild(t *testing.T) {
	cfg := config.NewDefaultConfig()

	for _, name := range Names() {
		plan, err := Build(name, cfg)
		require.NoError(t, err, name)
		assert.Equal(t, name, plan.Name)
		assert.NotEmpty(t, plan.Steps)
	}

	_, err := Build("checkout", cfg)
	assert.ErrorIs(t, err, ErrUnknownFlow)
	assert.Contains(t, err.Error(), "checkout")
}
