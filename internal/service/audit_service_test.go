package service

import (
	"context"
	"testing"
	"time"

	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports/mocks"
	"campus-store/pkg/logger"

	"go.uber.org/mock/gomock"
)

func TestAuditService_Record_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, logger.New("error", false))

	done := make(chan struct{})
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditEntry) error {
			if entry.Action != domain.AuditActionConfigUpdate {
				t.Errorf("expected CONFIG_UPDATE, got %s", entry.Action)
			}
			close(done)
			return nil
		})

	actorID := int64(3)
	svc.Record(context.Background(), &domain.AuditEntry{
		ActorID:   &actorID,
		Action:    domain.AuditActionConfigUpdate,
		Resource:  "wallet_config",
		IPAddress: "127.0.0.1",
		CreatedAt: time.Now(),
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry not persisted in time")
	}
}

func TestAuditService_Record_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, logger.New("error", false))

	// Log-only mode must not panic
	svc.Record(context.Background(), &domain.AuditEntry{
		Action:    domain.AuditActionRecharge,
		Resource:  "wallet",
		IPAddress: "127.0.0.1",
		CreatedAt: time.Now(),
	})

	time.Sleep(50 * time.Millisecond) // let the goroutine run
}
