package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/margin"
	"github.com/wonny/stratfolio/pkg/logger"
	"github.com/wonny/stratfolio/pkg/redis"
)

// DefaultMarginRefreshSchedule 매일 06:00 (초 단위 cron)
const DefaultMarginRefreshSchedule = "0 0 6 * * *"

// Refresher fetches and stores a fresh margin snapshot
type Refresher interface {
	Refresh(ctx context.Context, marginType contracts.MarginType) (margin.Snapshot, error)
}

// Locker guards a refresh across instances sharing one snapshot store
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (redis.UnlockFunc, bool, error)
}

// MarginRefreshJob refreshes the cached margin tables for every margin type
type MarginRefreshJob struct {
	refresher   Refresher
	schedule    string
	marginTypes []contracts.MarginType
	locker      Locker
	lockTTL     time.Duration
	logger      *logger.Logger
}

// NewMarginRefreshJob creates a new margin refresh job
func NewMarginRefreshJob(refresher Refresher, schedule string, log *logger.Logger) *MarginRefreshJob {
	if schedule == "" {
		schedule = DefaultMarginRefreshSchedule
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &MarginRefreshJob{
		refresher:   refresher,
		schedule:    schedule,
		marginTypes: []contracts.MarginType{contracts.MarginIntraday, contracts.MarginOvernight},
		logger:      log,
	}
}

// WithLocker makes the job skip a tick while another instance holds the refresh lock
func (j *MarginRefreshJob) WithLocker(l Locker, ttl time.Duration) *MarginRefreshJob {
	if ttl <= 0 {
		ttl = redis.TTLLock
	}
	j.locker = l
	j.lockTTL = ttl
	return j
}

// Name returns the job name
func (j *MarginRefreshJob) Name() string {
	return "margin_refresh"
}

// Schedule returns the cron schedule
func (j *MarginRefreshJob) Schedule() string {
	return j.schedule
}

// Run refreshes every margin type; one failing type does not skip the others
func (j *MarginRefreshJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled margin refresh")

	if j.locker != nil {
		unlock, ok, err := j.locker.TryLock(ctx, redis.MarginRefreshLock, j.lockTTL)
		if err != nil {
			return err
		}
		if !ok {
			j.logger.Info("Margin refresh running on another instance, skipping")
			return nil
		}
		defer func() {
			// ctx 가 취소돼도 락은 해제
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				j.logger.WithError(err).Warn("Failed to release margin refresh lock")
			}
		}()
	}

	var errs []error
	for _, mt := range j.marginTypes {
		snap, err := j.refresher.Refresh(ctx, mt)
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", mt, err))
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"margin_type": string(mt),
			"source":      snap.Source,
			"symbols":     len(snap.Rates),
		}).Info("Margin rates refreshed")
	}

	return errors.Join(errs...)
}
