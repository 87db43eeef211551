package service

import (
	"context"

	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"

	"github.com/rs/zerolog"
)

// AuditServiceImpl implements ports.AuditService. Entries are always written
// to the structured log; persistence is attempted when a repo is configured
// and its failures are logged, never propagated.
type AuditServiceImpl struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new AuditServiceImpl. A nil repo degrades to
// log-only auditing.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{repo: repo, log: log}
}

// Record writes the entry asynchronously. The caller's request context is
// deliberately not reused: the audit write must survive the response.
func (s *AuditServiceImpl) Record(_ context.Context, entry *domain.AuditEntry) {
	go func() {
		event := s.log.Info().
			Str("action", string(entry.Action)).
			Str("resource", entry.Resource).
			Str("ip", entry.IPAddress)
		if entry.ActorID != nil {
			event = event.Int64("actor_id", *entry.ActorID)
		}
		event.Msg("audit")

		if s.repo == nil {
			return
		}
		if err := s.repo.Create(context.Background(), entry); err != nil {
			s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit entry")
		}
	}()
}
