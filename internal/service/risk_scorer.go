package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/repository"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

const (
	maxRiskScore        = 10
	negativeMoodCap     = 3
	keywordFlagCap      = 4
	surveyDistressCap   = 2
	riskSignalWindow    = 7 * 24 * time.Hour
	riskHighAlertWindow = 30 * 24 * time.Hour
	riskScoreCacheTTL   = time.Minute
)

type riskSignalSource interface {
	Signals(ctx context.Context, userID string, signalSince, alertSince time.Time) (*repository.RiskSignals, error)
}

// RiskScorer derives a bounded 0..10 score from the last week of signals.
type RiskScorer struct {
	source riskSignalSource
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
}

// NewRiskScorer constructs the scorer. cache may be nil.
func NewRiskScorer(source riskSignalSource, cache *CacheService, logger *zap.Logger) *RiskScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskScorer{source: source, cache: cache, logger: logger, now: time.Now}
}

// ScoreSignals applies the per-signal caps and clips the sum.
func ScoreSignals(s repository.RiskSignals) int {
	score := capAt(s.NegativeMoods, negativeMoodCap) + capAt(s.KeywordFlags, keywordFlagCap) + capAt(s.SurveyDistress, surveyDistressCap)
	if s.RecentHighRisk {
		score++
	}
	return capAt(score, maxRiskScore)
}

// Score returns the user's current risk score.
func (r *RiskScorer) Score(ctx context.Context, userID string) (int, error) {
	key := RiskScoreCacheKey(userID)
	var cached int
	if r.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	now := r.now().UTC()
	signals, err := r.source.Signals(ctx, userID, now.Add(-riskSignalWindow), now.Add(-riskHighAlertWindow))
	if err != nil {
		return 0, appErrors.Internal(err, "failed to compute risk score")
	}
	score := ScoreSignals(*signals)
	r.cache.Set(ctx, key, score, riskScoreCacheTTL)
	return score, nil
}

// Invalidate drops the cached score after any write that feeds it.
func (r *RiskScorer) Invalidate(ctx context.Context, userID string) {
	r.cache.Invalidate(ctx, RiskScoreCacheKey(userID))
}

func capAt(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
