package experiment

// Phase is a phase of a training run
type Phase int

const (
	// Warmup collects transitions without updating the agent
	Warmup Phase = iota

	// Training samples from the buffer and updates the agent
	Training

	// Eval runs evaluation episodes with training paused
	Eval

	// Done is entered once the step budget is exhausted or the run is
	// cancelled
	Done
)

func (p Phase) String() string {
	switch p {
	case Warmup:
		return "warmup"
	case Training:
		return "training"
	case Eval:
		return "eval"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}
