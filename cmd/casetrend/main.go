// Package main is the entrypoint of the casetrend CLI.
package main

import (
	"github.com/huangsam/casetrend/cmd"
	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/internal/iostore"
)

func main() {
	cmd.SetStoreManager(iostore.Manager)
	defer iostore.CloseStores()

	err := cmd.Execute()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Cannot stop profiling", perr)
	}
	if err != nil {
		iostore.CloseStores()
		contract.LogFatal("casetrend failed", err)
	}
}
