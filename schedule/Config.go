package schedule

import "fmt"

// Type describes the different types of schedules available
type Type string

// Available schedule types
const (
	LinearType   Type = "linear"
	CurvedType   Type = "curved"
	ConstantType Type = "constant"
)

// DefaultPower is the power of a Curved schedule when none is given
const DefaultPower float64 = 2.0

// Config describes a Schedule and can be JSON serialized
type Config struct {
	Type       Type    `json:"type" mapstructure:"type"`
	Start      float64 `json:"start" mapstructure:"start"`
	End        float64 `json:"end" mapstructure:"end"`
	DecaySteps int     `json:"decay_steps" mapstructure:"decay_steps"`

	// Power is only used by curved schedules, a value of 0 results in
	// DefaultPower being used
	Power float64 `json:"power,omitempty" mapstructure:"power"`
}

// Validate returns an error describing why a Config is invalid, or nil
// if the Config is valid
func (c Config) Validate() error {
	switch c.Type {
	case LinearType, CurvedType:
		if c.DecaySteps < 1 {
			return fmt.Errorf("validate: decay steps must be positive "+
				"\n\twant(>0) \n\thave(%v)", c.DecaySteps)
		}
	case ConstantType:
	default:
		return fmt.Errorf("validate: no such schedule type %q", c.Type)
	}
	return nil
}

// Create returns the Schedule described by the Config
func (c Config) Create() (Schedule, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	var s Schedule
	var err error
	switch c.Type {
	case LinearType:
		s, err = NewLinear(c.Start, c.End, c.DecaySteps)

	case CurvedType:
		power := c.Power
		if power == 0 {
			power = DefaultPower
		}
		s, err = NewCurved(c.Start, c.End, c.DecaySteps, power)

	default:
		s = Constant(c.Start)
	}
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	return s, nil
}
