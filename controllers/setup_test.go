package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/middleware"
	"github.com/kendall-kelly/rto-dispatch-api/services"
	"github.com/kendall-kelly/rto-dispatch-api/tests/testutil"
	"gorm.io/gorm"
)

type testEnv struct {
	conn    *config.Connector
	db      *gorm.DB
	trips   *TripController
	profile *ProfileController
	webhook *WebhookController
	archive *services.MockEventArchive
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, db := testutil.NewTestConnector(t)
	return newTestEnv(t, conn, db)
}

func newTestEnv(t *testing.T, conn *config.Connector, db *gorm.DB) *testEnv {
	t.Helper()

	profiles := services.NewProfileStore(conn)
	trips := services.NewTripStore(conn)
	resolver := services.NewProfileResolver(profiles, nil, nil)
	archive := services.NewMockEventArchive()
	reconciler := services.NewReconciler(testutil.NewVerifier(t), profiles, services.NewGormDeliveryLedger(conn), archive, nil)

	return &testEnv{
		conn: conn,
		db:   db,
		trips: NewTripController(
			services.NewDispatcher(resolver, trips, nil),
			services.NewLifecycleController(resolver, trips, nil),
			services.NewTripQuery(resolver, profiles, trips),
		),
		profile: NewProfileController(resolver),
		webhook: NewWebhookController(reconciler),
		archive: archive,
	}
}

// tripRouter mounts the trip and profile routes behind a mock auth middleware
func (e *testEnv) tripRouter(userID string, claims *middleware.CustomClaims) *gin.Engine {
	router := gin.New()
	authed := router.Group("/api/v1", testutil.MockAuthMiddleware(userID, claims, ""))
	authed.GET("/profiles/me", e.profile.GetMyProfile)
	authed.POST("/trips", e.trips.CreateTrip)
	authed.GET("/trips", e.trips.ListTrips)
	authed.GET("/trips/:id", e.trips.GetTrip)
	authed.PATCH("/trips/:id/status", e.trips.UpdateTripStatus)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func errorCode(response map[string]interface{}) string {
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}
