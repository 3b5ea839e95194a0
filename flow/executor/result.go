package executor

// Result is the outcome of one flow run (spec §4.9, §7).
type Result struct {
	Success         bool
	FlowID          string
	RunID           string
	ExecutionTimeMS int64
	Outputs         map[string]any
	Error           error
	StoppedEarly    bool
	StoppedAtNodeID string
}
