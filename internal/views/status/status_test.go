package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fzmanager/fzm/internal/client"
)

func TestViewDisconnected(t *testing.T) {
	v := New().View()
	assert.Contains(t, v, "Disconnected")
	assert.Contains(t, v, string(client.StatusOffline))
}

func TestViewRunningServer(t *testing.T) {
	m := New()
	m.Width = 120
	m.Conn = client.StateConnected
	m.Snapshot = client.Snapshot{
		Status:        client.StatusRunning,
		ServerAddress: "1.2.3.4:34197",
		ModsSynced:    true,
		SavesSynced:   true,
	}
	v := m.View()
	assert.Contains(t, v, "Connected")
	assert.Contains(t, v, "RUNNING")
	assert.Contains(t, v, "1.2.3.4:34197")
	assert.Contains(t, v, "synced")
}

func TestViewSyncingAndBusy(t *testing.T) {
	m := New()
	m.Width = 120
	m.Conn = client.StateConnected
	m.Busy = "uploading"
	v := m.View()
	assert.Contains(t, v, "syncing")
	assert.Contains(t, v, "uploading...")
}
