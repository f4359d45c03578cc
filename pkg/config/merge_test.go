package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type innerConfig struct {
	Name    string
	Count   int
	Enabled bool
}

type outerConfig struct {
	Addr    string
	Timeout time.Duration
	Inner   innerConfig
	Ptr     *innerConfig
	Labels  map[string]string
	Hosts   []string
}

func TestMergeConfig(t *testing.T) {
	t.Run("both nil", func(t *testing.T) {
		_, err := MergeConfig[outerConfig](nil, nil)
		assert.ErrorIs(t, err, ErrNilConfig)
	})

	t.Run("dst nil returns src", func(t *testing.T) {
		src := &outerConfig{Addr: "a"}
		got, err := MergeConfig(nil, src)
		require.NoError(t, err)
		assert.Same(t, src, got)
	})

	t.Run("src nil returns dst", func(t *testing.T) {
		dst := &outerConfig{Addr: "a"}
		got, err := MergeConfig(dst, nil)
		require.NoError(t, err)
		assert.Same(t, dst, got)
	})

	t.Run("non-zero src overrides", func(t *testing.T) {
		dst := &outerConfig{
			Addr:    "default:8080",
			Timeout: 10 * time.Second,
			Inner:   innerConfig{Name: "default", Count: 3},
		}
		src := &outerConfig{
			Addr:  "user:9090",
			Inner: innerConfig{Count: 5},
		}

		got, err := MergeConfig(dst, src)
		require.NoError(t, err)

		assert.Equal(t, "user:9090", got.Addr)
		// src 未指定的字段保留默认值
		assert.Equal(t, 10*time.Second, got.Timeout)
		assert.Equal(t, "default", got.Inner.Name)
		assert.Equal(t, 5, got.Inner.Count)
	})

	t.Run("nil pointer in src is ignored", func(t *testing.T) {
		dst := &outerConfig{Ptr: &innerConfig{Name: "keep"}}
		got, err := MergeConfig(dst, &outerConfig{})
		require.NoError(t, err)
		assert.Equal(t, "keep", got.Ptr.Name)
	})

	t.Run("maps and slices override", func(t *testing.T) {
		dst := &outerConfig{
			Labels: map[string]string{"a": "1", "b": "2"},
			Hosts:  []string{"h1"},
		}
		src := &outerConfig{
			Labels: map[string]string{"b": "20", "c": "30"},
			Hosts:  []string{"h2", "h3"},
		}

		got, err := MergeConfig(dst, src)
		require.NoError(t, err)

		assert.Equal(t, map[string]string{"a": "1", "b": "20", "c": "30"}, got.Labels)
		assert.Equal(t, []string{"h2", "h3"}, got.Hosts)
	})
}
