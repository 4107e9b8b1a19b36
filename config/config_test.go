package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 512*1024, cfg.Transport.MaxFrameSize)
	assert.Equal(t, 30*time.Second, cfg.Messaging.RequestTimeout.Duration())
	assert.Equal(t, 10*time.Second, cfg.Transport.DialTimeout.Duration())
	assert.Equal(t, DefaultBeaconGroup, cfg.Discovery.BeaconGroup)
	assert.Equal(t, 3*time.Second, cfg.Discovery.DialSuppression.Duration())
	assert.True(t, cfg.PeerExchange.Enable)
}

func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"identity": {"peer_id": "00000000-0000-0000-0000-000000000001"},
		"transport": {"listen_addrs": ["127.0.0.1:7000"], "max_frame_size": 4096},
		"messaging": {"request_timeout": "2s"},
		"discovery": {"enable_beacon": true, "beacon_interval": 1000000000}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"127.0.0.1:7000"}, cfg.Transport.ListenAddrs)
	assert.Equal(t, 4096, cfg.Transport.MaxFrameSize)
	assert.Equal(t, 2*time.Second, cfg.Messaging.RequestTimeout.Duration())
	assert.Equal(t, time.Second, cfg.Discovery.BeaconInterval.Duration())
	// 未出现的字段保留默认值
	assert.Equal(t, 10*time.Second, cfg.Transport.DialTimeout.Duration())

	id, err := cfg.Identity.ResolvePeerID()
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", id.String())
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte(`{"identity": {"peer_id": "nope"}}`))
	assert.ErrorIs(t, err, ErrInvalidPeerID)

	_, err = FromJSON([]byte(`{"messaging": {"request_timeout": "soon"}}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"discovery": {"enable_beacon": true, "beacon_group": "10.0.0.1:5566"}}`))
	assert.ErrorIs(t, err, ErrInvalidBeaconGroup)
}

func TestLoadFile(t *testing.T) {
	cfg := NewConfig()
	cfg.Transport.ListenAddrs = []string{"127.0.0.1:0"}
	data, err := cfg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_timeout": "30s"`)

	path := filepath.Join(t.TempDir(), "modnet.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidateAndFix(t *testing.T) {
	cfg := NewConfig()
	cfg.Transport.MaxFrameSize = 0
	cfg.Messaging.RequestTimeout = -1
	cfg.Metrics.Namespace = ""
	require.Error(t, cfg.Validate())

	fixed, err := ValidateAndFix(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxFrameSize, fixed.Transport.MaxFrameSize)
	assert.Equal(t, 30*time.Second, fixed.Messaging.RequestTimeout.Duration())
	assert.Equal(t, "modnet", fixed.Metrics.Namespace)

	assert.Error(t, ValidateAll(nil))
}

func TestIdentity_ResolveRandom(t *testing.T) {
	a, err := IdentityConfig{}.ResolvePeerID()
	require.NoError(t, err)
	b, err := IdentityConfig{}.ResolvePeerID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
