// Package initwfn describes Gorgonia weight initializers with flat
// configurations so that they can be read from configuration files.
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "glorotu"
	GlorotN  Type = "glorotn"
	HeU      Type = "heu"
	HeN      Type = "hen"
	Gaussian Type = "gaussian"
	Uniform  Type = "uniform"
	Constant Type = "constant"
	Zeroes   Type = "zeroes"
	Ones     Type = "ones"
)

// Config describes a Gorgonia InitWFn. Gain is used by the Glorot and
// He initializers, Mean and StdDev by Gaussian, Low and High by
// Uniform, and Value by Constant.
type Config struct {
	Type   Type    `json:"type" mapstructure:"type"`
	Gain   float64 `json:"gain" mapstructure:"gain"`
	Mean   float64 `json:"mean" mapstructure:"mean"`
	StdDev float64 `json:"stddev" mapstructure:"stddev"`
	Low    float64 `json:"low" mapstructure:"low"`
	High   float64 `json:"high" mapstructure:"high"`
	Value  float64 `json:"value" mapstructure:"value"`
}

// Default returns the Glorot uniform initializer with unit gain
func Default() Config {
	return Config{Type: GlorotU, Gain: 1.0}
}

// Validate returns an error describing whether or not the Config is
// valid
func (c Config) Validate() error {
	switch c.Type {
	case GlorotU, GlorotN, HeU, HeN:
		if c.Gain <= 0 {
			return fmt.Errorf("validate: %v gain must be positive "+
				"\n\twant(>0) \n\thave(%v)", c.Type, c.Gain)
		}

	case Gaussian:
		if c.StdDev <= 0 {
			return fmt.Errorf("validate: standard deviation must be "+
				"positive \n\twant(>0) \n\thave(%v)", c.StdDev)
		}

	case Uniform:
		if c.Low >= c.High {
			return fmt.Errorf("validate: uniform bounds must satisfy "+
				"low < high \n\thave(%v, %v)", c.Low, c.High)
		}

	case Constant, Zeroes, Ones:

	default:
		return fmt.Errorf("validate: no such initializer type %q", c.Type)
	}
	return nil
}

// Create returns the Gorgonia InitWFn described by the Config
func (c Config) Create() (G.InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	switch c.Type {
	case GlorotU:
		return G.GlorotU(c.Gain), nil
	case GlorotN:
		return G.GlorotN(c.Gain), nil
	case HeU:
		return G.HeU(c.Gain), nil
	case HeN:
		return G.HeN(c.Gain), nil
	case Gaussian:
		return G.Gaussian(c.Mean, c.StdDev), nil
	case Uniform:
		return G.Uniform(c.Low, c.High), nil
	case Constant:
		return G.ValuesOf(c.Value), nil
	case Ones:
		return G.Ones(), nil
	default:
		return G.Zeroes(), nil
	}
}

func (c Config) String() string {
	return fmt.Sprintf("{%v InitWFn}", c.Type)
}
