package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "adv "+version+"\n", out)
}

func TestJacobianCmd(t *testing.T) {
	out, err := run(t, "jacobian", "--func", "abs_plus", "--x", "0,3", "--signs", "1")
	require.NoError(t, err)

	var res jacobianResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, [][]float64{{1, 1}}, res.Homogeneous)
	assert.Equal(t, []float64{0}, res.Inhomogeneous)
	assert.Equal(t, 1, res.Multiplicity)
	assert.Equal(t, []float64{3}, res.Value)
}

func TestJacobianCmd_Chain(t *testing.T) {
	out, err := run(t, "jacobian", "-f", "halfpipe_chain", "--x", "1,2", "--dx", "0.5,0", "--workers", "1")
	require.NoError(t, err)

	var res jacobianResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	require.Len(t, res.Homogeneous, 1)
	// x1² − x0 is active at (1, 2).
	assert.InDelta(t, -1.0, res.Homogeneous[0][0], 1e-12)
	assert.InDelta(t, 4.0, res.Homogeneous[0][1], 1e-12)
}

func TestJacobianCmd_Errors(t *testing.T) {
	_, err := run(t, "jacobian", "-f", "nope", "--x", "1")
	assert.ErrorContains(t, err, "unknown function")

	_, err = run(t, "jacobian", "-f", "halfpipe", "--x", "1")
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = run(t, "jacobian", "-f", "abs_plus", "--x", "0,1")
	assert.ErrorContains(t, err, "sign sequence exhausted")

	_, err = run(t, "jacobian", "-f", "abs_plus", "--x", "0,1", "--signs", "2")
	assert.ErrorContains(t, err, "invalid character")
}

func TestANFCmd(t *testing.T) {
	out, err := run(t, "anf", "-f", "abs_plus", "--x", "2,3")
	require.NoError(t, err)

	var res anfResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Kinks)
	assert.Equal(t, []float64{2}, res.A)
	assert.Equal(t, [][]float64{{1, 0}}, res.Z)
	assert.Equal(t, []float64{-2}, res.B)
	assert.Equal(t, [][]float64{{0, 1}}, res.J)
	assert.Equal(t, [][]float64{{1}}, res.Y)
}

func TestScheduleCmd(t *testing.T) {
	out, err := run(t, "schedule", "-c", "5", "-r", "100")
	require.NoError(t, err)

	var res scheduleResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, []int{45, 70, 86, 96, 99}, res.Schedule)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checkpoints: 1\n"), 0o600))

	_, err := run(t, "--config", path, "version")
	assert.ErrorContains(t, err, "checkpoints must be 0")
}

func TestPackBits(t *testing.T) {
	got, err := packBits("1100000111100011")
	require.NoError(t, err)
	assert.Equal(t, []byte{0b1000_0011, 0b1100_0111}, got)

	got, err = packBits("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
