package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-lms1xx/lms1xx"
	"github.com/arloliu/go-lms1xx/logger"
	"github.com/arloliu/go-lms1xx/telegram"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "LMSCTL"

// cliConfig is the merged result of flags, LMSCTL_* environment variables and
// the optional config file, in that order of precedence.
type cliConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Serial       string        `mapstructure:"serial"`
	Baud         int           `mapstructure:"baud"`
	SampleBase   string        `mapstructure:"sample-base"`
	PasswordHash string        `mapstructure:"password-hash"`
	LogLevel     string        `mapstructure:"log-level"`
	LogFile      string        `mapstructure:"log-file"`
}

// app carries the state shared by subcommands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    cliConfig
	log    *logger.ZapLogger
	device *lms1xx.Device
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lmsctl",
		Short: "Query and configure LMS1xx laser scanners",
		Long: `lmsctl talks to an LMS1xx laser scanner over TCP or a serial line.

Connection modes:
  TCP:    --host 192.168.0.1 [--port 2111]
  Serial: --serial /dev/ttyUSB0 [--baud 115200]

Every flag can also be set with an LMSCTL_ environment variable, e.g.
LMSCTL_HOST or LMSCTL_LOG_LEVEL, or in a config file given by --config.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Config file (yaml, toml or json)")
	flags.String("host", "", "Device address")
	flags.Int("port", lms1xx.DefaultPort, "Device TCP port")
	flags.Duration("timeout", 5*time.Second, "Read timeout per telegram")
	flags.String("serial", "", "Serial port device, replaces --host")
	flags.Int("baud", lms1xx.DefaultBaudRate, "Baud rate (serial only)")
	flags.String("sample-base", "hex", "Base of 8-bit scan samples: hex or decimal")
	flags.String("password-hash", fmt.Sprintf("%08X", telegram.DefaultPasswordHash), "Password hash used for login, in hex")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-file", "", "Also write logs to this file, rotated by size")

	root.AddCommand(
		newStatusCmd(a),
		newConfigCmd(a),
		newSetConfigCmd(a),
		newScanCmd(a),
	)

	return root
}

// setup loads the configuration, installs the logger and connects.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.loadConfig(cmd); err != nil {
		return err
	}

	level, err := logger.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}

	a.log, err = logger.NewZap(logger.ZapConfig{
		Level:   level,
		Console: true,
		File:    a.cfg.LogFile,
		Output:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	logger.SetLogger(a.log)

	connCfg, err := a.connectionConfig()
	if err != nil {
		return err
	}

	a.device, err = lms1xx.NewDevice(connCfg)
	if err != nil {
		return err
	}

	return a.device.Connect(cmd.Context())
}

func (a *app) teardown(*cobra.Command, []string) error {
	var errs []error
	if a.device != nil {
		errs = append(errs, a.device.Disconnect())
	}
	if a.log != nil {
		errs = append(errs, a.log.Close())
	}

	return errors.Join(errs...)
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	return nil
}

func (a *app) connectionConfig() (*lms1xx.ConnectionConfig, error) {
	hash, err := strconv.ParseUint(a.cfg.PasswordHash, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid password hash %q: %w", a.cfg.PasswordHash, err)
	}

	var base telegram.Base
	switch strings.ToLower(a.cfg.SampleBase) {
	case "hex", "":
		base = telegram.Hex
	case "decimal", "dec":
		base = telegram.Decimal
	default:
		return nil, fmt.Errorf("invalid sample base %q", a.cfg.SampleBase)
	}

	opts := []lms1xx.ConnOption{
		lms1xx.WithReadTimeout(a.cfg.Timeout),
		lms1xx.WithEightBitSampleBase(base),
		lms1xx.WithAccessMode(telegram.DefaultUserLevel, uint32(hash)),
		lms1xx.WithLogger(a.log),
	}
	if a.cfg.Serial != "" {
		opts = append(opts, lms1xx.WithSerialPort(a.cfg.Serial, a.cfg.Baud))
	}

	return lms1xx.NewConnectionConfig(a.cfg.Host, a.cfg.Port, opts...)
}
