package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/stem-explorer/internal/cache"
	"github.com/kjstillabower/stem-explorer/internal/config"
)

// main itself is wiring only; the store selection is the one branch worth covering here.

func TestNewUploadStore_InMemory(t *testing.T) {
	store, mc, err := newUploadStore(&config.Config{CacheBackend: "in_memory", InMemoryMaxEntries: 10})
	require.NoError(t, err)

	assert.Nil(t, mc)
	assert.IsType(t, &cache.InMemoryCache{}, store)
}

func TestNewUploadStore_Memcached(t *testing.T) {
	store, mc, err := newUploadStore(&config.Config{CacheBackend: "memcached", MemcachedAddrs: "localhost:11211"})
	require.NoError(t, err)
	defer mc.Close()

	assert.Same(t, mc, store)
}

func TestNewUploadStore_Unknown(t *testing.T) {
	_, _, err := newUploadStore(&config.Config{CacheBackend: "redis"})
	assert.Error(t, err)
}
