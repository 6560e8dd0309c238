package session

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/emath"
	"github.com/abworrall/ccdcal/pkg/integrity"
	"github.com/abworrall/ccdcal/pkg/masters"
)

/* Example config file ...

workdir: /data/ngc7000
lights: [lights/]
darks: [darks/dark_300s_001.fits, darks/dark_300s_002.fits]
bias: [bias/]
flats: [flats/]
flatsigma: 3
previews: true
previewcolormap: gray_r

*/

type Config struct {
	Verbosity int

	WorkDir string
	Lights  []string
	Darks   []string
	Biases  []string `yaml:"bias"`
	Flats   []string

	Unit      string
	MemLimit  int64
	MaxIters  int
	BiasSigma float64 // 0 means the builder's default for the role
	DarkSigma float64
	FlatSigma float64

	Software  string
	Version   string
	Overwrite bool // replace existing calibrated outputs

	Previews        bool // write a PNG next to each master
	PreviewColormap string
	ExportHDR       bool // write a Radiance .hdr next to each calibrated frame
}

// Environment variables that override the config file.
const (
	EnvWorkDir  = "CCDCAL_WORKDIR"
	EnvSoftware = "CCDCAL_SOFTWARE"
	EnvVersion  = "CCDCAL_PROCVERS"
	EnvMemLimit = "CCDCAL_MEMLIMIT"
)

func NewConfig() Config {
	return Config{
		WorkDir:         ".",
		Lights:          []string{},
		Darks:           []string{},
		Biases:          []string{},
		Flats:           []string{},
		Unit:            ccd.DefaultUnit,
		MemLimit:        masters.DefaultMemLimit,
		MaxIters:        masters.DefaultMaxIters,
		Software:        integrity.DefaultSoftware,
		Version:         integrity.DefaultVersion,
		PreviewColormap: "gray",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}

	c, err := newConfigFromYaml(contents)
	if err != nil {
		return Config{}, fmt.Errorf("config parse %s: %v", filename, err)
	}
	return c, c.Validate()
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// ApplyEnv overrides fields from the environment, where set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvWorkDir); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv(EnvSoftware); v != "" {
		c.Software = v
	}
	if v := os.Getenv(EnvVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvMemLimit); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %v", EnvMemLimit, err)
		}
		c.MemLimit = n
	}
	return nil
}

// Validate does sanity checks.
func (c Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("config: workdir is empty")
	}
	if _, exists := emath.Colormaps[c.PreviewColormap]; !exists {
		return fmt.Errorf("config: no colormap named '%s' (have: %s)", c.PreviewColormap, emath.ListColormaps())
	}
	for _, s := range []float64{c.BiasSigma, c.DarkSigma, c.FlatSigma} {
		if s < 0 {
			return fmt.Errorf("config: negative clipping sigma %v", s)
		}
	}
	return nil
}

// Paths returns the configured collection for a role.
func (c Config) Paths(role ccd.Role) []string {
	switch role {
	case ccd.Light:
		return c.Lights
	case ccd.Dark:
		return c.Darks
	case ccd.Bias:
		return c.Biases
	case ccd.Flat:
		return c.Flats
	}
	return nil
}

func (c *Config) SetPaths(role ccd.Role, paths []string) {
	switch role {
	case ccd.Light:
		c.Lights = paths
	case ccd.Dark:
		c.Darks = paths
	case ccd.Bias:
		c.Biases = paths
	case ccd.Flat:
		c.Flats = paths
	}
}

// Counts returns how many files each role's collection expands to.
func (c Config) Counts() (map[ccd.Role]int, error) {
	counts := map[ccd.Role]int{}
	for _, role := range append([]ccd.Role{ccd.Light}, ccd.CalibrationRoles...) {
		if len(c.Paths(role)) == 0 {
			counts[role] = 0
			continue
		}
		paths, err := ccd.ExpandPaths(c.Paths(role)...)
		if err != nil {
			return nil, err
		}
		counts[role] = len(paths)
	}
	return counts, nil
}

func (c Config) sigma(role ccd.Role) float64 {
	switch role {
	case ccd.Bias:
		return c.BiasSigma
	case ccd.Dark:
		return c.DarkSigma
	case ccd.Flat:
		return c.FlatSigma
	}
	return 0
}

func (c Config) builderOptions(role ccd.Role, logf func(string, ...interface{})) masters.Options {
	return masters.Options{
		Unit:      c.Unit,
		MemLimit:  c.MemLimit,
		MaxIters:  c.MaxIters,
		ClipSigma: c.sigma(role),
		Logf:      logf,
	}
}

func (c Config) renderOptions() emath.RenderOptions {
	opts := emath.DefaultRenderOptions()
	opts.Colormap = c.PreviewColormap
	return opts
}
