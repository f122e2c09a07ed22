// Package activity keeps a log of the domain events emitted by the
// consistency operations.
package activity

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/events"
	"github.com/fatflowers/gymdesk/pkg/apperr"
	"github.com/fatflowers/gymdesk/pkg/logctx"
	"github.com/fatflowers/gymdesk/pkg/tool"
)

const (
	DefaultLimit = 50
	// memoryCapacity bounds the log kept when no database is configured.
	memoryCapacity = 500
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger

	pending sync.WaitGroup
	mu      sync.Mutex
	memory  []*models.ActivityLog
}

// New keeps the log in postgres when db is set and in memory otherwise.
func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

var Module = fx.Options(
	fx.Provide(New),
	fx.Decorate(func(p events.Publisher, s *Service) events.Publisher { return s.Wrap(p) }),
	fx.Invoke(flushOnStop),
)

func flushOnStop(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			s.Wait()
			return nil
		},
	})
}

// Save asynchronously persists ev. Failures are logged.
func (s *Service) Save(ctx context.Context, ev events.Event) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		entry, err := toEntry(ev)
		if err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to encode activity %s: %v", ev.Type, err)
			return
		}
		if s.db == nil {
			s.remember(entry)
			return
		}
		if err := s.db.WithContext(ctx).Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save activity log: %v", err)
		}
	}()
}

// Wait blocks until every pending Save has finished.
func (s *Service) Wait() { s.pending.Wait() }

func toEntry(ev events.Event) (*models.ActivityLog, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, err
	}
	id := ev.ID
	if id == "" {
		id = tool.GenerateUUIDV7()
	}
	return &models.ActivityLog{ID: id, Type: ev.Type, Actor: ev.Actor, Payload: payload, OccurredAt: ev.OccurredAt}, nil
}

func (s *Service) remember(entry *models.ActivityLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = append(s.memory, entry)
	if over := len(s.memory) - memoryCapacity; over > 0 {
		s.memory = append(s.memory[:0:0], s.memory[over:]...)
	}
}

// Recent returns up to limit entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	if limit <= 0 || limit > memoryCapacity {
		limit = DefaultLimit
	}
	if s.db != nil {
		var out []*models.ActivityLog
		err := s.db.WithContext(ctx).Order("occurred_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
		if err != nil {
			return nil, apperr.Store("list activity", err)
		}
		return out, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ActivityLog, 0, limit)
	for i := len(s.memory) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.memory[i])
	}
	return out, nil
}

// Wrap returns a publisher that logs every event before handing it on.
func (s *Service) Wrap(next events.Publisher) events.Publisher {
	return &recording{next: next, s: s}
}

type recording struct {
	next events.Publisher
	s    *Service
}

func (r *recording) Publish(ctx context.Context, ev events.Event) error {
	r.s.Save(ctx, ev)
	return r.next.Publish(ctx, ev)
}
