package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/integrity"
)

func newMasterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "master <bias|dark|flat> [files or dirs...]",
		Short: "Build a master calibration frame",
		Long: `Combines raw calibration frames into master_<role>.fits in the working
directory. Darks and flats have the saved master bias subtracted first,
if there is one.`,
		Example: `  ccdcal master bias raw/bias/
  ccdcal master dark raw/darks/ --workdir night1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := ccd.ParseRole(args[0])
			if err != nil {
				return err
			}
			if role == ccd.Light {
				return fmt.Errorf("lights have no master")
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if len(args) > 1 {
				s.SetPaths(role, args[1:])
			}

			if role != ccd.Bias {
				if _, err := os.Stat(s.MasterPath(ccd.Bias)); err == nil {
					if _, err := s.LoadMaster(ccd.Bias); err != nil {
						return err
					}
				}
			}

			m, err := s.BuildMaster(role)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", s.MasterPath(role), ccd.NewDigest(*m))
			return nil
		},
	}
}

func newCalibrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate [lights...]",
		Short: "Calibrate light frames with the saved masters",
		Example: `  ccdcal calibrate raw/lights/ --workdir night1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				s.SetPaths(ccd.Light, args)
			}

			for _, role := range ccd.CalibrationRoles {
				if _, err := os.Stat(s.MasterPath(role)); err == nil {
					if _, err := s.LoadMaster(role); err != nil {
						return err
					}
				}
			}

			outs, err := s.Calibrate(cmd.Context(), progress)
			if err != nil {
				return err
			}
			fmt.Printf("Calibrated %d frames\n", len(outs))
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build all masters from the config, then calibrate the lights",
		Example: `  ccdcal run -c night1.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			outs, err := s.Run(cmd.Context(), progress)
			if err != nil {
				return err
			}
			fmt.Printf("Calibrated %d frames\n", len(outs))
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	var report string

	cmd := &cobra.Command{
		Use:   "verify [files or dirs...]",
		Short: "Check calibrated frames against their stored digests",
		Long: `Recomputes the pixel digest of each file and compares it with the
DATACHECK header card. With no arguments, checks the calibrated
directory. Exits non-zero if any file is invalid or unreadable.`,
		Example: `  ccdcal verify night1/calibrated --report audit.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			sum, err := s.Verify(args...)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", sum)
			for _, path := range sum.InvalidFiles() {
				fmt.Printf("  INVALID: %s\n", path)
			}

			if report != "" {
				if err := integrity.WriteReport(report, sum); err != nil {
					return err
				}
				fmt.Printf("Report written to %s\n", report)
			}

			if sum.Invalid > 0 || sum.Errored > 0 {
				return fmt.Errorf("%d invalid, %d unreadable", sum.Invalid, sum.Errored)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&report, "report", "", "write per-file results to this parquet file")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and frame counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", c.AsYaml())

			counts, err := c.Counts()
			if err != nil {
				return err
			}
			roles := []string{}
			for role := range counts {
				roles = append(roles, string(role))
			}
			sort.Strings(roles)
			for _, role := range roles {
				fmt.Printf("%-6s %d frames\n", role, counts[ccd.Role(role)])
			}
			return nil
		},
	}
}
