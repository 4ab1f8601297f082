package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes for different failure modes
const (
	ExitSuccess   = 0 // Filing scored below the --fail-on tier
	ExitRiskFound = 1 // Filing scored at or above the --fail-on tier
	ExitError     = 2 // Configuration, input or runtime error
)

// RiskThresholdError means scoring succeeded but the verdict reached the
// tier requested with --fail-on.
type RiskThresholdError struct {
	Message string
}

func (e *RiskThresholdError) Error() string {
	return e.Message
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		var riskErr *RiskThresholdError
		if errors.As(err, &riskErr) {
			os.Exit(ExitRiskFound)
		}
		os.Exit(ExitError)
	}
}
