package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfo(t *testing.T) {
	info := Get()
	assert.Contains(t, info.String(), "insights version "+Version)
	assert.Contains(t, info.Markdown(), "**Platform:**")
}

func TestAtLeast(t *testing.T) {
	prev := Version
	t.Cleanup(func() { Version = prev })

	Version = "1.4.0"
	ok, err := AtLeast("1.2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AtLeast("2.0.0")
	require.NoError(t, err)
	assert.False(t, ok)

	Version = "dev"
	ok, err = AtLeast("9.9")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = AtLeast("not a version")
	assert.Error(t, err)
}
