package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, WalletStub, cfg.WalletBackend)
	assert.Equal(t, 7, cfg.SpinCountdownSec)
	assert.Equal(t, time.Second, cfg.SpinTick)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", BackendRedis)
	t.Setenv("SPIN_COUNTDOWN_SEC", "3")
	t.Setenv("SPIN_TICK_MS", "50")
	t.Setenv("WALLET_FAILURE_RATE", "0.25")
	t.Setenv("RANDOM_SEED", "99")

	cfg := Load()

	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, 3, cfg.SpinCountdownSec)
	assert.Equal(t, 50*time.Millisecond, cfg.SpinTick)
	assert.InDelta(t, 0.25, cfg.WalletFailureRate, 1e-9)
	assert.Equal(t, uint64(99), cfg.RandomSeed)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("SPIN_COUNTDOWN_SEC", "seven")
	t.Setenv("WALLET_FAILURE_RATE", "lots")

	cfg := Load()

	assert.Equal(t, 7, cfg.SpinCountdownSec)
	assert.Zero(t, cfg.WalletFailureRate)
}

func TestLoad_RandomSeedIsUnsigned(t *testing.T) {
	t.Setenv("RANDOM_SEED", "18446744073709551615")
	assert.Equal(t, uint64(18446744073709551615), Load().RandomSeed)

	t.Setenv("RANDOM_SEED", "-5")
	assert.Zero(t, Load().RandomSeed, "negative seeds fall back to time based")
}
