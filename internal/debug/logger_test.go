package debug

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	defer Init(false)

	var buf bytes.Buffer
	require.NoError(t, Configure("info", "json", &buf))
	assert.False(t, Enabled())

	Debug("hidden")
	Info("query executed", "data_source", "warehouse")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "query executed", line["msg"])
	assert.Equal(t, "warehouse", line["data_source"])

	buf.Reset()
	require.NoError(t, Configure("debug", "text", &buf))
	assert.True(t, Enabled())
	With("component", "executor").Debug("visible")
	assert.Contains(t, buf.String(), "component=executor")
}

func TestConfigureRejectsBadInput(t *testing.T) {
	assert.Error(t, Configure("loud", "text", nil))
	assert.Error(t, Configure("info", "xml", nil))
}
