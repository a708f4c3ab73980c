package main

import (
	"fmt"

	"github.com/temirov/digest/internal/cli"
	"github.com/temirov/digest/internal/utils"
)

const (
	loggerInitializationFailedFormat = "logger initialization failed: %w"
	applicationExecutionFailed       = "digest failed"
)

// main is the entry point for the digest command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(false)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(loggerInitializationFailedFormat, loggerInitializationError))
	}
	defer func() { _ = loggerInstance.Sync() }()
	if applicationExecutionError := cli.Execute(); applicationExecutionError != nil {
		loggerInstance.Fatal(applicationExecutionFailed + ": " + applicationExecutionError.Error())
	}
}
