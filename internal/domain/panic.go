package domain

import (
	"fmt"
	"runtime"
	"time"
)

// ChainPanicError captures a panic raised inside a fire-and-forget chain
// goroutine so it can be recorded on the ChainExecution instead of crashing
// the dispatcher.
type ChainPanicError struct {
	ChainExecutionID string      `json:"chain_execution_id"`
	StepID           string      `json:"step_id,omitempty"`
	PanicValue       interface{} `json:"panic_value"`
	StackTrace       string      `json:"stack_trace"`
	Timestamp        time.Time   `json:"timestamp"`
}

func (e *ChainPanicError) Error() string {
	return fmt.Sprintf("chain execution panicked: %s (%v)", e.ChainExecutionID, e.PanicValue)
}

func NewChainPanicError(chainExecutionID, stepID string, panicValue interface{}) *ChainPanicError {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	return &ChainPanicError{
		ChainExecutionID: chainExecutionID,
		StepID:           stepID,
		PanicValue:       panicValue,
		StackTrace:       string(buf[:n]),
		Timestamp:        time.Now(),
	}
}
