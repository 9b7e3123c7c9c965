package service

import (
	"context"
	"time"

	"github.com/ignatzorin/uslugi-backend/internal/logger"
)

// Sweeper — фоновый обход просроченных смет и зависших заявок. Дедлайны
// проверяются по расписанию, а не по таймеру на каждую смету: после рестарта
// сервиса ничего не теряется.
type Sweeper struct {
	quotes    *QuoteService
	mediation *MediationService
	requests  RequestRepository

	interval        time.Duration
	staleAssignment time.Duration
}

// NewSweeper создаёт фоновый обход.
func NewSweeper(quotes *QuoteService, mediation *MediationService, requests RequestRepository, interval, staleAssignment time.Duration) *Sweeper {
	return &Sweeper{
		quotes:          quotes,
		mediation:       mediation,
		requests:        requests,
		interval:        interval,
		staleAssignment: staleAssignment,
	}
}

// Run запускает цикл обхода до отмены контекста.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep выполняет один проход: просроченные сметы и зависшие заявки.
func (s *Sweeper) Sweep(ctx context.Context) {
	if expired, err := s.quotes.ExpireOverdue(ctx); err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("sweeper: обход просроченных смет не удался: %v", err)
		}
	} else if expired > 0 && logger.Log != nil {
		logger.Log.Infof("sweeper: просрочено смет: %d", expired)
	}

	s.sweepStaleAssignments(ctx)
}

// sweepStaleAssignments переназначает заявки, висящие на операторе дольше
// допустимого срока.
func (s *Sweeper) sweepStaleAssignments(ctx context.Context) {
	stale, err := s.requests.ListStaleAssigned(ctx, time.Now().Add(-s.staleAssignment))
	if err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("sweeper: выборка зависших заявок не удалась: %v", err)
		}
		return
	}

	for _, request := range stale {
		if _, err := s.mediation.RequeueStale(ctx, request.ID); err != nil {
			if logger.Log != nil {
				logger.Log.Errorf("sweeper: заявка %s не переназначена: %v", request.ID, err)
			}
		}
	}
}
