package bot

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/scamguard/internal/db"
	"github.com/iamwavecut/scamguard/internal/infra"
)

const pollTimeoutSeconds = 60

// Service owns the polling loop. Start seeds the configured owner and begins
// dispatching updates to the processor; Stop drains it.
type Service struct {
	source    UpdateSource
	store     Store
	owner     db.RoleRecord
	processor *UpdateProcessor
	logger    *log.Entry

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	offset  int
	backoff backoff.Backoff
}

func NewService(source UpdateSource, store Store, owner db.RoleRecord, processor *UpdateProcessor, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	owner.Username = db.NormalizeUsername(owner.Username)
	owner.Role = db.RoleOwner
	return &Service{
		source:    source,
		store:     store,
		owner:     owner,
		processor: processor,
		logger:    logger.WithField("component", "bot"),
		backoff: backoff.Backoff{
			Min:    time.Second,
			Max:    30 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}
}

func (s *Service) Start(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return errors.Wrap(err, "storage is unavailable")
	}
	if s.owner.UserID != 0 {
		owner := s.owner
		if err := s.store.SeedRole(ctx, &owner); err != nil {
			return errors.Wrap(err, "seed owner")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for runCtx.Err() == nil {
			err := infra.RunRecoverable("process_updates", func() error {
				return s.poll(runCtx)
			})
			if runCtx.Err() != nil {
				return
			}
			wait := s.backoff.Duration()
			s.logger.WithError(err).WithField("retry_in", wait.String()).Error("update polling stopped")
			select {
			case <-runCtx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
	s.logger.Info("bot service started")
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		s.logger.Info("bot service stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) poll(ctx context.Context) error {
	updateConfig := api.NewUpdate(s.offset)
	updateConfig.Timeout = pollTimeoutSeconds
	updateConfig.AllowedUpdates = []string{"message"}

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	updateChan, errorChan := GetUpdatesChans(pollCtx, s.source, updateConfig)

	for {
		select {
		case err := <-errorChan:
			return errors.WithMessage(err, "bot api get updates error")
		case update, ok := <-updateChan:
			if !ok {
				return errors.WithMessage(<-errorChan, "updates channel closed")
			}
			s.offset = update.UpdateID + 1
			s.backoff.Reset()
			if err := s.processor.Process(ctx, &update); err != nil {
				s.logger.WithError(err).Errorln("cant process update")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
