package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/arloliu/go-lms1xx/internal/simulator"
	"github.com/arloliu/go-lms1xx/logger"
	"github.com/arloliu/go-lms1xx/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSim(t *testing.T, opts ...simulator.Option) *simulator.Simulator {
	t.Helper()

	opts = append([]simulator.Option{simulator.WithLogger(logger.NewSlogWriter(io.Discard, logger.ErrorLevel, false))}, opts...)
	sim, err := simulator.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sim.Close() })

	return sim
}

func run(t *testing.T, sim *simulator.Simulator, args ...string) (string, error) {
	t.Helper()

	out, _, err := runApp(t, sim, args...)

	return out, err
}

// runApp is run that also returns the app, to inspect the merged configuration.
func runApp(t *testing.T, sim *simulator.Simulator, args ...string) (string, *app, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	a := newApp()
	cmd := a.rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--host", sim.Host(), "--port", strconv.Itoa(sim.Port()), "--log-level", "error"))

	err := cmd.ExecuteContext(context.Background())

	return out.String(), a, err
}

func TestStatusCmd(t *testing.T) {
	sim := startSim(t, simulator.WithStatus(telegram.StatusReadyForMeasurement))

	out, err := run(t, sim, "status")
	require.NoError(t, err)
	assert.Equal(t, "status: ready_for_measurement (7)\n", out)
}

func TestConfigCmd(t *testing.T) {
	sim := startSim(t)

	out, err := run(t, sim, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "scanning frequency: 50.00 Hz")
	assert.Contains(t, out, "scan area:          -45° to 225°")
	assert.Contains(t, out, "step 0.5°")
}

func TestSetConfigCmd(t *testing.T) {
	sim := startSim(t)

	out, err := run(t, sim, "set-config", "--freq", "2500", "--res", "2500", "--start", "0", "--stop", "1800000", "--save")
	require.NoError(t, err)
	assert.Equal(t, "scan configuration written\n", out)

	assert.Equal(t, telegram.ScanConfiguration{
		ScanningFrequency: 2500, AngleResolution: 2500, StartAngle: 0, StopAngle: 1800000,
	}, sim.ScanConfiguration())
	assert.Contains(t, sim.Requests(), "sMN mEEwriteall")
	assert.Contains(t, sim.Requests(), "sMN Run")
}

func TestSetConfigCmd_Rejected(t *testing.T) {
	sim := startSim(t)

	_, err := run(t, sim, "set-config", "--freq", "1234")
	var cfgErr *telegram.ScanConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestScanCmd(t *testing.T) {
	for _, args := range [][]string{
		{"scan", "-n", "2"},
		{"scan", "-n", "2", "--stream"},
	} {
		t.Run(args[len(args)-1], func(t *testing.T) {
			sim := startSim(t, simulator.WithStreamInterval(5*time.Millisecond))

			out, err := run(t, sim, args...)
			require.NoError(t, err)
			assert.Equal(t,
				"scan 0: DIST1=541[1000..1540] RSSI1=541[0..255]\n"+
					"scan 1: DIST1=541[1000..1540] RSSI1=541[0..255]\n",
				out)
		})
	}
}

func TestRootCmd_EnvAndLogFile(t *testing.T) {
	sim := startSim(t)
	logFile := filepath.Join(t.TempDir(), "logs", "lmsctl.log")

	t.Setenv("LMSCTL_LOG_FILE", logFile)
	t.Setenv("LMSCTL_TIMEOUT", "1s")

	_, a, err := runApp(t, sim, "status")
	require.NoError(t, err)

	assert.Equal(t, time.Second, a.cfg.Timeout)
	assert.Equal(t, time.Second, a.device.Config().ReadTimeout())
	assert.Equal(t, logFile, a.cfg.LogFile)

	// Nothing is logged at error level, the file exists regardless.
	_, err = os.Stat(logFile)
	require.NoError(t, err)
}

func TestRootCmd_FlagOverridesEnv(t *testing.T) {
	sim := startSim(t)
	t.Setenv("LMSCTL_TIMEOUT", "1s")

	_, a, err := runApp(t, sim, "status", "--timeout", "3s")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, a.device.Config().ReadTimeout())
}

func TestRootCmd_ConfigFile(t *testing.T) {
	sim := startSim(t)
	path := filepath.Join(t.TempDir(), "lmsctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample-base: decimal\npassword-hash: F4724744\n"), 0o600))

	_, err := run(t, sim, "status", "--config", path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("sample-base: octal\n"), 0o600))
	_, err = run(t, sim, "status", "--config", path)
	require.ErrorContains(t, err, "invalid sample base")
}

func TestRootCmd_MissingHost(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"status", "--log-level", "error"})

	require.Error(t, cmd.ExecuteContext(context.Background()))
}
