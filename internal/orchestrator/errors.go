package orchestrator

import "fmt"

// EnvironmentError reports a failure to set up or tear down the network
// environment. It is always fatal for the run.
type EnvironmentError struct {
	Op  string
	Err error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment %s: %v", e.Op, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }
