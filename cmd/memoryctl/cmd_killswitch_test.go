package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKillSwitch_TogglesAndAudits(t *testing.T) {
	current = newTestApp(t)
	killSwitchReason = "operator requested pause"
	defer func() { killSwitchReason = "" }()

	require.NoError(t, runKillSwitch(killSwitchCmd, []string{"auto_update_enabled", "true"}))

	auditPath := filepath.Join(current.Config.DataRoot, "kill-switch-log.jsonl")
	data, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "auto_update_enabled")
}

func TestRunKillSwitch_RejectsInvalidValue(t *testing.T) {
	current = newTestApp(t)
	assert.Error(t, runKillSwitch(killSwitchCmd, []string{"auto_update_enabled", "maybe"}))
}
