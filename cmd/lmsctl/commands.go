package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/arloliu/go-lms1xx/telegram"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the device state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.device.Status(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "status: %s (%d)\n", status, int(status))

			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the scan configuration and output range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.device.ScanConfiguration(cmd.Context())
			if err != nil {
				return err
			}

			r, err := a.device.ScanOutputRange(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanning frequency: %.2f Hz\n", float64(cfg.ScanningFrequency)/100)
			fmt.Fprintf(out, "angle resolution:   %s\n", degrees(int64(cfg.AngleResolution)))
			fmt.Fprintf(out, "scan area:          %s to %s\n", degrees(int64(cfg.StartAngle)), degrees(int64(cfg.StopAngle)))
			fmt.Fprintf(out, "output range:       %s to %s step %s\n",
				degrees(int64(r.StartAngle)), degrees(int64(r.StopAngle)), degrees(int64(r.AngleResolution)))

			return nil
		},
	}
}

func newSetConfigCmd(a *app) *cobra.Command {
	var (
		freq, res   uint32
		start, stop int32
		save        bool
	)

	cmd := &cobra.Command{
		Use:   "set-config",
		Short: "Write the scanning frequency, angular resolution and scan area",
		Long: `Log in and write a new scan configuration.

Frequency is in 1/100 Hz and angles in 1/10000 degree, e.g.
  lmsctl set-config --freq 5000 --res 5000 --start -450000 --stop 2250000

The device returns to measurement mode afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := a.device.Login(ctx); err != nil {
				return err
			}

			cfg := telegram.ScanConfiguration{
				ScanningFrequency: freq,
				AngleResolution:   res,
				StartAngle:        start,
				StopAngle:         stop,
			}
			if err := a.device.SetScanConfiguration(ctx, cfg); err != nil {
				return err
			}

			if save {
				if err := a.device.SaveConfiguration(ctx); err != nil {
					return err
				}
			}

			if err := a.device.StartDevice(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "scan configuration written")

			return nil
		},
	}

	cmd.Flags().Uint32Var(&freq, "freq", 5000, "Scanning frequency in 1/100 Hz")
	cmd.Flags().Uint32Var(&res, "res", 5000, "Angular resolution in 1/10000 degree")
	cmd.Flags().Int32Var(&start, "start", -450000, "Start angle in 1/10000 degree")
	cmd.Flags().Int32Var(&stop, "stop", 2250000, "Stop angle in 1/10000 degree")
	cmd.Flags().BoolVar(&save, "save", false, "Store the configuration permanently")

	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var (
		count  int
		stream bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Read scans and print a summary of each",
		Long: `Read scans from the device and print one summary line per scan.

By default every scan is polled with a single request. With --stream the
device pushes scans continuously until count scans have been read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if stream {
				if err := a.device.ScanContinuous(ctx, true); err != nil {
					return err
				}
			}

			var data telegram.ScanData
			for i := 0; i < count; i++ {
				var err error
				if stream {
					err = a.device.ReadScanData(ctx, &data)
				} else {
					err = a.device.PollScanData(ctx, &data)
				}
				if err != nil {
					return err
				}

				printScan(cmd.OutOrStdout(), i, &data)
			}

			if stream {
				return a.device.ScanContinuous(ctx, false)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of scans to read")
	cmd.Flags().BoolVar(&stream, "stream", false, "Use the continuous scan stream")

	return cmd
}

func printScan(w io.Writer, i int, data *telegram.ScanData) {
	fmt.Fprintf(w, "scan %d:", i)

	for ch := telegram.Dist1; ch <= telegram.RSSI2; ch++ {
		values := data.Channel(ch).Values()
		if len(values) == 0 {
			continue
		}

		fmt.Fprintf(w, " %s=%d[%d..%d]", ch, len(values), slices.Min(values), slices.Max(values))
	}

	fmt.Fprintln(w)
}

// degrees renders a value in 1/10000 degree.
func degrees(v int64) string {
	return fmt.Sprintf("%.4g°", float64(v)/10000)
}
