package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProdIsJSONInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter("prod", buf)

	log.Debug("hidden")
	log.Info("action reversed", "action_id", "x")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "action reversed", rec["msg"])
	assert.Equal(t, "mod-bot", rec["service"])
	assert.Equal(t, "x", rec["action_id"])
}

func TestDevLogsDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	NewWithWriter("dev", buf).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
