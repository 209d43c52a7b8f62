// main is the entrypoint for the fairspot CLI.
package main

import (
	"github.com/huangsam/fairspot/cmd"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/runstore"
)

func main() {
	defer runstore.CloseStore()
	defer func() {
		if err := cmd.StopProfiling(); err != nil {
			contract.LogWarn("Failed to stop profiling", err)
		}
	}()

	if err := cmd.Execute(); err != nil {
		runstore.CloseStore()
		contract.LogFatal("Command failed", err)
	}
}
