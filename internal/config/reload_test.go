// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestConfigHolder_ReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0o600))
	require.NoError(t, holder.Reload(context.Background()))
	assert.Equal(t, "debug", holder.Get().LogLevel)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: shouting\n"), 0o600))
	assert.Error(t, holder.Reload(context.Background()))
	assert.Equal(t, "debug", holder.Get().LogLevel)
}

func TestConfigHolder_WatcherReloadsAndNotifies(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, "viewer:\n  deepZoomTimeout: 15s\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewConfigHolder(initial, loader)
	updates := make(chan AppConfig, 1)
	holder.RegisterListener(updates)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, holder.StartWatcher(ctx))
	defer holder.Stop()

	require.NoError(t, os.WriteFile(path, []byte("viewer:\n  deepZoomTimeout: 45s\n"), 0o600))

	select {
	case cfg := <-updates:
		assert.Equal(t, 45*time.Second, cfg.Viewer.DeepZoomTimeout)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload notification")
	}
	assert.Equal(t, 45*time.Second, holder.Get().Viewer.DeepZoomTimeout)

	holder.Stop()
}

func TestConfigHolder_NoFileNoWatcher(t *testing.T) {
	holder := NewConfigHolder(Defaults(), NewLoader("", ""))
	require.NoError(t, holder.StartWatcher(context.Background()))
	holder.Stop()
}
