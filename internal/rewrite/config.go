package rewrite

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options are the process-wide, build-time override flags. They are fixed
// for an entire run and never mutated by the transformation itself.
type Options struct {
	// DisableAll turns every contract (except Test ones) into a no-op.
	DisableAll bool `yaml:"disable_all"`
	// ForceDebug demotes Always contracts to Debug. LogOnly stays LogOnly.
	ForceDebug bool `yaml:"force_debug"`
	// ForceLogOnly turns Always and Debug contracts into LogOnly ones.
	ForceLogOnly bool `yaml:"force_log_only"`
}

// Validate reports an error when more than one override flag is set; the
// flags form a precedence chain, not a set union.
func (o Options) Validate() error {
	n := 0
	for _, b := range []bool{o.DisableAll, o.ForceDebug, o.ForceLogOnly} {
		if b {
			n++
		}
	}
	if n > 1 {
		return errors.New("contracts: disable-all, force-debug and force-log-only are mutually exclusive")
	}
	return nil
}

// LoadOptions reads override flags from a YAML config file. A missing file
// is not an error: it yields the zero Options.
func LoadOptions(path string) (Options, error) {
	var opts Options
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return opts, nil
	}
	if err != nil {
		return opts, fmt.Errorf("contracts: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("contracts: parse config %s: %w", path, err)
	}
	return opts, opts.Validate()
}
