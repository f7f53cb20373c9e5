package cron

import (
	"context"
	"fmt"

	"github.com/wallcraft/storefront-backend/internal/fulfillment"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

type fulfillmentRunner interface {
	RunDue(ctx context.Context) (fulfillment.Summary, error)
}

// NewFulfillmentJob drains due fulfillments each cycle.
func NewFulfillmentJob(logg *logger.Logger, runner fulfillmentRunner) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if runner == nil {
		return nil, fmt.Errorf("fulfillment processor required")
	}
	return &fulfillmentJob{logg: logg, runner: runner}, nil
}

type fulfillmentJob struct {
	logg   *logger.Logger
	runner fulfillmentRunner
}

func (j *fulfillmentJob) Name() string { return "fulfillment-dispatch" }

func (j *fulfillmentJob) Run(ctx context.Context) error {
	summary, err := j.runner.RunDue(ctx)
	if err != nil {
		return err
	}
	if summary.Due == 0 {
		return nil
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":     summary.Due,
		"created": summary.Created,
		"failed":  summary.Failed,
		"skipped": summary.Skipped,
	}), "fulfillment batch processed")
	return nil
}
