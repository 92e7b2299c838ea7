// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scheduler runs periodic background maintenance: expired
// auth tokens and stale session leases are swept on an interval.
package scheduler

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/synapse-labs/mindy/internal/auth"
	"github.com/synapse-labs/mindy/internal/locking"
)

// Scheduler handles periodic maintenance sweeps
type Scheduler struct {
	tokenManager *auth.TokenManager
	locker       *locking.Locker
	interval     time.Duration
	logger       *zap.Logger
	stopChan     chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(db *gorm.DB, tokenManager *auth.TokenManager, intervalMinutes int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tokenManager: tokenManager,
		locker:       locking.NewLocker(db),
		interval:     time.Duration(intervalMinutes) * time.Minute,
		logger:       logger,
		stopChan:     make(chan bool),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopChan <- true
}

// sweep runs one maintenance pass
func (s *Scheduler) sweep() {
	tokens, err := s.tokenManager.CleanExpiredTokens()
	if err != nil {
		s.logger.Warn("failed to clean expired tokens", zap.Error(err))
	} else if tokens > 0 {
		s.logger.Info("cleaned expired tokens", zap.Int64("count", tokens))
	}

	leases, err := s.locker.CleanupExpired()
	if err != nil {
		s.logger.Warn("failed to clean expired session leases", zap.Error(err))
	} else if leases > 0 {
		s.logger.Info("cleaned expired session leases", zap.Int64("count", leases))
	}
}
