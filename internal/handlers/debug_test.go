package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"project-comms/internal/middleware"
	"project-comms/internal/mocks"
	"project-comms/internal/telemetry"
)

func TestDebugRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterDebugRoutes(router, nil, nil, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugAuditTestPublishes(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit.project_comms", mock.AnythingOfType("telemetry.AuditEnvelope")).Return(nil).Once()
	emitter := telemetry.NewAuditEmitter(publisher, "audit.project_comms", "project-comms", "test")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterDebugRoutes(router, emitter, nil, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	publisher.AssertExpectations(t)
}

func TestDebugTokenRoundTrip(t *testing.T) {
	tokens := middleware.NewTokenService("secret", 0)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterDebugRoutes(router, nil, tokens, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/debug/token", bytes.NewBufferString(`{"user_id":"u1","name":"Ana","role":"worker"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	claims, err := tokens.ParseToken(body.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
}
