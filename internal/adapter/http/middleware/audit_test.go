package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newAuditedRouter(auditSvc *mocks.MockAuditService, status int) *gin.Engine {
	r := gin.New()
	r.Use(AuditTrail(auditSvc))
	handler := func(c *gin.Context) {
		c.Set(CtxUserID, int64(3))
		c.Status(status)
	}
	r.POST("/api/v1/wallet/payments/review", handler)
	r.PUT("/api/v1/wallet/config", handler)
	r.POST("/api/v1/wallet/unmapped", handler)
	r.GET("/api/v1/wallet/overview", handler)
	return r
}

func TestAuditTrail_RecordsMappedWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auditSvc := mocks.NewMockAuditService(ctrl)
	auditSvc.EXPECT().Record(gomock.Any(), gomock.Any()).Do(
		func(_ any, entry *domain.AuditEntry) {
			assert.Equal(t, domain.AuditActionPaymentReview, entry.Action)
			assert.Equal(t, "order", entry.Resource)
			if assert.NotNil(t, entry.ActorID) {
				assert.Equal(t, int64(3), *entry.ActorID)
			}
			assert.Contains(t, entry.Details, `"status":200`)
		})

	r := newAuditedRouter(auditSvc, http.StatusOK)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallet/payments/review", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditTrail_ConfigUpdateMapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auditSvc := mocks.NewMockAuditService(ctrl)
	auditSvc.EXPECT().Record(gomock.Any(), gomock.Any()).Do(
		func(_ any, entry *domain.AuditEntry) {
			assert.Equal(t, domain.AuditActionConfigUpdate, entry.Action)
		})

	r := newAuditedRouter(auditSvc, http.StatusOK)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/wallet/config", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditTrail_SkipsReadsUnmappedAndFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No Record expectation: none of these requests may be audited.
	auditSvc := mocks.NewMockAuditService(ctrl)

	r := newAuditedRouter(auditSvc, http.StatusOK)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wallet/overview", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallet/unmapped", nil))

	failing := newAuditedRouter(auditSvc, http.StatusBadRequest)
	w = httptest.NewRecorder()
	failing.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/wallet/payments/review", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
