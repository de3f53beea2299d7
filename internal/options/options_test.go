package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	size int
	name string
}

func TestApply_Order(t *testing.T) {
	cfg := &testConfig{}
	err := Apply(cfg,
		NoError(func(c *testConfig) { c.size = 1 }),
		NoError(func(c *testConfig) { c.size = 2 }),
		NoError(func(c *testConfig) { c.name = "last" }),
	)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.size)
	require.Equal(t, "last", cfg.name)
}

func TestApply_StopsAtError(t *testing.T) {
	boom := errors.New("boom")

	cfg := &testConfig{}
	err := Apply(cfg,
		NoError(func(c *testConfig) { c.size = 1 }),
		New(func(c *testConfig) error { return boom }),
		NoError(func(c *testConfig) { c.size = 99 }),
	)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, cfg.size)
}

func TestApply_NoOptions(t *testing.T) {
	require.NoError(t, Apply(&testConfig{}))
}
