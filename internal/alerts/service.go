package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"floodwatch/internal/types"
)

// LastCheckedWriter stamps the time of a user's latest check.
type LastCheckedWriter interface {
	UpdateLastChecked(ctx context.Context, userID string, at time.Time) error
}

// CheckFunc runs one full check cycle for a user.
type CheckFunc func(ctx context.Context, userID string) error

// Service joins analysis and dispatch for both the recurring scheduler and
// on-demand checks.
type Service struct {
	analyzer    *Analyzer
	dispatcher  *Dispatcher
	settings    SettingsReader
	lastChecked LastCheckedWriter
	clock       types.Clock
	logger      *slog.Logger
}

// NewService creates a Service. lastChecked may be nil.
func NewService(analyzer *Analyzer, dispatcher *Dispatcher, settings SettingsReader, lastChecked LastCheckedWriter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		analyzer:    analyzer,
		dispatcher:  dispatcher,
		settings:    settings,
		lastChecked: lastChecked,
		clock:       types.RealClock{},
		logger:      logger,
	}
}

// CheckRequest is an on-demand check.
type CheckRequest struct {
	UserID       string
	MinRiskLevel *int
	SendEmail    bool
}

// CheckResult is the analysis plus one outcome per affected location.
type CheckResult struct {
	Analysis *types.AnalysisResult
	Outcomes []types.DispatchOutcome
}

// Check analyzes the user's locations and dispatches when anything triggered.
func (s *Service) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	analysis, err := s.analyzer.AnalyzeUserLocations(ctx, req.UserID, AnalyzeOptions{MinRiskLevel: req.MinRiskLevel})
	if err != nil {
		return nil, err
	}
	result := &CheckResult{Analysis: analysis, Outcomes: []types.DispatchOutcome{}}
	if analysis.AffectedLocations == 0 {
		return result, nil
	}
	result.Outcomes = s.dispatcher.Dispatch(ctx, analysis, DispatchOptions{SendEmail: req.SendEmail})
	return result, nil
}

// RunCycle is the scheduled check: it stamps lastChecked, then checks with
// the email preference from the user's stored settings.
func (s *Service) RunCycle(ctx context.Context, userID string) error {
	settings, err := s.settings.GetAlertSettings(ctx, userID)
	if err != nil {
		return fmt.Errorf("RunCycle: load settings: %w", err)
	}
	sendEmail := settings != nil && settings.EmailEnabled

	if s.lastChecked != nil {
		if err := s.lastChecked.UpdateLastChecked(ctx, userID, s.clock.Now()); err != nil {
			s.logger.WarnContext(ctx, "failed to update last checked", "user_id", userID, "error", err)
		}
	}

	result, err := s.Check(ctx, CheckRequest{UserID: userID, SendEmail: sendEmail})
	if err != nil {
		return fmt.Errorf("RunCycle: %w", err)
	}
	s.logger.InfoContext(ctx, "scheduled check finished",
		"user_id", userID,
		"affected", result.Analysis.AffectedLocations,
		"total", result.Analysis.TotalLocations,
		"notified_locations", len(result.Outcomes),
	)
	return nil
}

// CheckFunc returns RunCycle as a CheckFunc.
func (s *Service) CheckFunc() CheckFunc {
	return s.RunCycle
}
