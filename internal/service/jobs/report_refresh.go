package jobs

import (
	"context"
	"fmt"

	"ForecastBench/internal/usecase"
	"ForecastBench/pkg/logger"
	"ForecastBench/pkg/queue"
)

// ReportRefreshJob rebuilds the run report off the request path. Resolutions
// enqueue one of these so the first API reader after a label settles gets a
// warm cache.
type ReportRefreshJob struct {
	reports *usecase.ReportsUseCase
	l       *logger.Logger
}

func NewReportRefreshJob(reports *usecase.ReportsUseCase, l *logger.Logger) *ReportRefreshJob {
	return &ReportRefreshJob{reports: reports, l: l}
}

func (j *ReportRefreshJob) Name() string { return "report_refresh" }

func (j *ReportRefreshJob) Type() string { return usecase.ReportRefreshType }

func (j *ReportRefreshJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[usecase.ReportRefreshPayload](payload)
	if err != nil {
		return fmt.Errorf("report refresh payload: %w", err)
	}

	report := j.reports.GetRunReport(ctx)
	j.l.Debug("report refreshed",
		logger.Int("round", p.Round),
		logger.String("horizon", p.Horizon),
		logger.Int("models", len(report.Models)))
	return nil
}

var _ queue.Job = (*ReportRefreshJob)(nil)
