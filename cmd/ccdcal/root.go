package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/session"
)

var (
	fConfigFile string
	fVerbosity  int
	fWorkDir    string
	fUnit       string
	fOverwrite  bool
	fPreviews   bool
	fColormap   string
	fExportHDR  bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ccdcal",
		Short: "CCD calibration: master frames, light calibration, integrity checks",
		Long: `ccdcal builds master bias, dark and flat frames from raw calibration
exposures, calibrates light frames against them, and stamps each
result with a digest of its pixels so later tampering can be detected.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&fConfigFile, "config", "c", "", "YAML config file")
	pf.IntVarP(&fVerbosity, "verbosity", "v", 0, "how verbose to get")
	pf.StringVar(&fWorkDir, "workdir", "", "working directory for masters and calibrated output")
	pf.StringVar(&fUnit, "unit", "", "pixel unit (default "+ccd.DefaultUnit+")")
	pf.BoolVar(&fOverwrite, "overwrite", false, "replace existing calibrated files")
	pf.BoolVar(&fPreviews, "previews", false, "write a PNG preview of each master")
	pf.StringVar(&fColormap, "colormap", "", "preview colormap")
	pf.BoolVar(&fExportHDR, "hdr", false, "also write each calibrated frame as Radiance .hdr")

	cmd.AddCommand(newMasterCmd())
	cmd.AddCommand(newCalibrateCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig builds the config from file, then environment, then flags.
func loadConfig(cmd *cobra.Command) (session.Config, error) {
	c := session.NewConfig()
	if fConfigFile != "" {
		var err error
		if c, err = session.LoadConfig(fConfigFile); err != nil {
			return c, err
		}
		log.Printf("Loaded base configuration from %s\n", fConfigFile)
	}

	if err := c.ApplyEnv(); err != nil {
		return c, err
	}

	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		c.Verbosity = fVerbosity
	}
	if fWorkDir != "" {
		c.WorkDir = fWorkDir
	}
	if fUnit != "" {
		c.Unit = fUnit
	}
	if flags.Changed("overwrite") {
		c.Overwrite = fOverwrite
	}
	if flags.Changed("previews") {
		c.Previews = fPreviews
	}
	if fColormap != "" {
		c.PreviewColormap = fColormap
	}
	if flags.Changed("hdr") {
		c.ExportHDR = fExportHDR
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	if c.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", c.AsYaml())
	}
	return c, nil
}

func newSession(cmd *cobra.Command) (*session.Session, error) {
	c, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return session.New(c, ccd.FileCodec{}), nil
}

func progress(done, total int, f ccd.Frame) {
	fmt.Printf("[%d/%d] %s\n", done, total, f.Filename())
}
