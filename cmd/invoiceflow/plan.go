package main

import (
	"fmt"
	"os"

	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
)

// runPlan prints the plan the orchestrator would execute.
func runPlan(cfg *config.Config) error {
	plan := pipeline.DefaultPlan()
	if cfg.Pipeline.PlanFile != "" {
		p, err := pipeline.LoadFromFile(cfg.Pipeline.PlanFile)
		if err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		plan = p
	}
	data, err := pipeline.Marshal(plan)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
