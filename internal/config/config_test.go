package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgewatch/runmon/pkg/types"
)

func TestValidate(t *testing.T) {
	cfg := Config{StoreDSN: "file.db", RelayEnabled: true, RelayQueue: "relay"}
	require.NoError(t, cfg.Validate())

	cfg = Config{RelayQueue: "relay"}
	require.Error(t, cfg.Validate())

	cfg = Config{StoreDSN: "file.db", RelayEnabled: true}
	require.Error(t, cfg.Validate())
}

func TestAcceptedSiteNames_DefaultExclusions(t *testing.T) {
	cfg := Config{}
	all := []string{"RENCI", "TACC", "UCF", "George Mason", "PSC"}

	accepted, err := cfg.AcceptedSiteNames(all)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"RENCI", "TACC", "PSC"}, accepted)
}

func TestAcceptedSiteNames_ExplicitList(t *testing.T) {
	cfg := Config{AcceptedSites: []string{"RENCI"}}

	accepted, err := cfg.AcceptedSiteNames([]string{"RENCI", "TACC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"RENCI"}, accepted)
}

func TestAcceptedSiteNames_SitesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accepted_sites:\n  - RENCI\n  - LSU\n"), 0o644))

	cfg := Config{SitesFile: path, AcceptedSites: []string{"ignored"}}
	accepted, err := cfg.AcceptedSiteNames(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"RENCI", "LSU"}, accepted)
}

func TestAcceptedSiteNames_EmptySitesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accepted_sites: []\n"), 0o644))

	cfg := Config{SitesFile: path}
	_, err := cfg.AcceptedSiteNames(nil)
	require.Error(t, err)
}

func TestAlertConfigs(t *testing.T) {
	cfg := Config{}
	configs := cfg.AlertConfigs()
	require.Len(t, configs, 1)
	assert.Equal(t, types.AlertConsole, configs[0].Type)

	cfg = Config{SlackWebhookURL: "https://hooks.slack.example/x", SlackChannel: "#ops", AlertFile: "alerts.jsonl"}
	configs = cfg.AlertConfigs()
	require.Len(t, configs, 3)
	assert.Equal(t, types.AlertSlack, configs[1].Type)
	assert.Equal(t, "#ops", configs[1].Channel)
	assert.Equal(t, types.AlertFile, configs[2].Type)
}
