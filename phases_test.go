package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePhases(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPhasesOverridesDefaults(t *testing.T) {
	c := validConfig()
	c.headers = &headersList{{"X-Run", "soak"}}
	c.phasesPath = writePhases(t, `
phases:
  - name: version
  - name: create-pkey
    method: POST
    target: /ufmRest/resources/pkeys
    body: '{"pkey":"0x7fff"}'
    headers:
      - "X-Trace: on"
    runtime_seconds: 10
`)
	require.NoError(t, c.loadPhases())
	require.Len(t, c.phases, 2)

	version := c.phases[0]
	assert.Equal(t, "version", version.name)
	assert.Equal(t, "GET", version.method)
	assert.Equal(t, c.target, version.target)
	assert.Nil(t, version.body)
	assert.Same(t, c.headers, version.headers)
	assert.Nil(t, version.runtime)

	create := c.phases[1]
	assert.Equal(t, "POST", create.method)
	assert.Equal(t, "/ufmRest/resources/pkeys", create.target)
	require.NotNil(t, create.body)
	assert.Equal(t, `{"pkey":"0x7fff"}`, *create.body)
	assert.Equal(t, headersList{{"X-Run", "soak"}, {"X-Trace", "on"}}, *create.headers)
	assert.Len(t, *c.headers, 1)
	require.NotNil(t, create.runtime)
	assert.EqualValues(t, 10, *create.runtime)
}

func TestLoadPhasesErrors(t *testing.T) {
	expectations := []struct {
		content string
		err     error
	}{
		{"phases: []", errEmptyPhases},
		{"phases:\n  - method: GET", errPhaseName},
		{"phases:\n  - name: a\n    target: relative", errTargetNotAbsolute},
		{"phases:\n  - name: a\n    runtime_seconds: 0", errInvalidRuntime},
		{"phases:\n  - name: a\n    method: HEAD\n    body: x", errBodyNotAllowed},
		{"phases:\n  - name: a\n    headers: [\"nocolon\"]", errInvalidHeaderFormat},
	}
	for _, e := range expectations {
		c := validConfig()
		c.phasesPath = writePhases(t, e.content)
		err := c.loadPhases()
		assert.True(t, errors.Is(err, e.err), "%q: got %v", e.content, err)
	}
}

func TestLoadPhasesBadFile(t *testing.T) {
	c := validConfig()
	c.phasesPath = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, c.loadPhases())

	c.phasesPath = writePhases(t, "phases: {name: [")
	assert.Error(t, c.loadPhases())
}

func TestPhaseInvalidMethod(t *testing.T) {
	c := validConfig()
	c.phasesPath = writePhases(t, "phases:\n  - name: a\n    method: BREW")
	err := c.loadPhases()
	var ime *invalidHTTPMethodError
	require.True(t, errors.As(err, &ime), "got %v", err)
	assert.Equal(t, "BREW", ime.method)
}

func TestPhaseRuntimeDecidesDryRun(t *testing.T) {
	expectations := []struct {
		phases string
		dryRun bool
	}{
		{"phases:\n  - name: a\n  - name: b\n", true},
		{"phases:\n  - name: a\n  - name: b\n    runtime_seconds: 2\n", false},
	}
	for _, e := range expectations {
		c := validConfig()
		c.runtime = nil
		c.phasesPath = writePhases(t, e.phases)
		require.NoError(t, c.checkArgs())
		assert.Equal(t, e.dryRun, c.dryRun, e.phases)
	}

	c := validConfig()
	c.runtime = nil
	c.phasesPath = writePhases(t, "phases:\n  - name: a\n  - name: b\n    runtime_seconds: 2\n")
	require.NoError(t, c.checkArgs())
	untimed, timed := c.phases[0], c.phases[1]
	assert.Equal(t, 2*time.Second, c.phaseDuration(timed))
	assert.Equal(t, 2*time.Second, c.reportDuration(timed))
	assert.Zero(t, c.phaseDuration(untimed))
	assert.Equal(t, oneSecond, c.reportDuration(untimed))
}
