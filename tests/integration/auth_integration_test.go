package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/middleware"
	"github.com/kendall-kelly/rto-dispatch-api/models"
	"github.com/kendall-kelly/rto-dispatch-api/server"
	"github.com/kendall-kelly/rto-dispatch-api/services"
	"github.com/kendall-kelly/rto-dispatch-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// AuthIntegrationTestSuite runs the application router behind the real JWT
// middleware
type AuthIntegrationTestSuite struct {
	suite.Suite
	cfg    *config.Config
	app    *server.Server
	router *gin.Engine
	db     *gorm.DB
}

// SetupSuite loads configuration the way main does
func (suite *AuthIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	os.Setenv("GO_ENV", "test")
	os.Setenv("DATABASE_URL", "sqlite::memory:")
	os.Setenv("AUTH0_DOMAIN", "test.auth0.com")
	os.Setenv("AUTH0_AUDIENCE", "https://api.test.com")
	os.Setenv("IDENTITY_WEBHOOK_SECRET", testutil.WebhookSecret)
	os.Setenv("REDIS_URL", "")
	os.Setenv("AWS_EVENT_ARCHIVE_BUCKET", "")
	os.Setenv("PORT", "8080")

	cfg, err := config.Load()
	suite.Require().NoError(err)
	suite.cfg = cfg
}

// SetupTest opens a fresh database and application for each test
func (suite *AuthIntegrationTestSuite) SetupTest() {
	conn := config.NewConnector(suite.cfg.DatabaseURL)
	db, err := conn.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(config.Migrate(db))
	suite.db = db

	a, err := server.New(context.Background(), suite.cfg, conn)
	suite.Require().NoError(err)
	suite.app = a
	suite.router = a.Router(middleware.EnsureValidToken(suite.cfg))
}

// TearDownTest releases the database
func (suite *AuthIntegrationTestSuite) TearDownTest() {
	suite.app.Close()
}

func (suite *AuthIntegrationTestSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// TestHealthNeedsNoToken tests that the health endpoint is public
func (suite *AuthIntegrationTestSuite) TestHealthNeedsNoToken() {
	w := suite.serve(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), response["success"].(bool))
	assert.Equal(suite.T(), "RTO Dispatch API is running", response["message"])
}

// TestIdentityWebhookNeedsNoToken tests that the webhook authenticates by
// signature rather than by bearer token
func (suite *AuthIntegrationTestSuite) TestIdentityWebhookNeedsNoToken() {
	body := testutil.UserEvent(suite.T(), services.EventUserCreated, "user_d1", "d1@example.com", "DRIVER", "Koramangala")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", bytes.NewReader(body))
	for k, v := range testutil.SignedHeaders(suite.T(), "msg_1", time.Now(), body) {
		req.Header[k] = v
	}

	w := suite.serve(req)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var count int64
	suite.db.Model(&models.Profile{}).Where("external_id = ?", "user_d1").Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

// TestUnsignedWebhookIsRejectedWithoutToken tests that skipping the JWT does
// not skip signature verification
func (suite *AuthIntegrationTestSuite) TestUnsignedWebhookIsRejectedWithoutToken() {
	body := testutil.UserEvent(suite.T(), services.EventUserCreated, "user_d1", "d1@example.com", "DRIVER", "Koramangala")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := suite.serve(req)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestTripRoutesRejectBadTokens tests every trip route against missing,
// invalid and malformed credentials
func (suite *AuthIntegrationTestSuite) TestTripRoutesRejectBadTokens() {
	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/trips", `{"startLocation":"A","endLocation":"B","criticalLevel":"high"}`},
		{http.MethodGet, "/api/v1/trips", ""},
		{http.MethodGet, "/api/v1/trips/3f1c7a52-8d3e-4b8a-9a57-1a2b3c4d5e6f", ""},
		{http.MethodPatch, "/api/v1/trips/3f1c7a52-8d3e-4b8a-9a57-1a2b3c4d5e6f/status", `{"status":"approved"}`},
		{http.MethodGet, "/api/v1/profiles/me", ""},
	}
	headers := []struct {
		name   string
		header string
	}{
		{"No header", ""},
		{"Invalid token", "Bearer invalid-token-here"},
		{"Missing Bearer prefix", "token-without-bearer"},
		{"Wrong prefix", "Basic token"},
		{"Empty token", "Bearer "},
		{"Only Bearer", "Bearer"},
	}

	for _, route := range routes {
		for _, h := range headers {
			suite.T().Run(route.method+" "+route.path+"/"+h.name, func(t *testing.T) {
				req := httptest.NewRequest(route.method, route.path, bytes.NewReader([]byte(route.body)))
				req.Header.Set("Content-Type", "application/json")
				if h.header != "" {
					req.Header.Set("Authorization", h.header)
				}

				w := suite.serve(req)

				assert.Equal(t, http.StatusUnauthorized, w.Code)

				var response map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.False(t, response["success"].(bool))
				errorObj := response["error"].(map[string]interface{})
				assert.Equal(t, "INVALID_TOKEN", errorObj["code"])
				assert.NotEmpty(t, errorObj["message"])
			})
		}
	}

	var trips int64
	suite.db.Model(&models.Trip{}).Count(&trips)
	assert.Equal(suite.T(), int64(0), trips, "Rejected requests must not write trips")
}

func TestAuthIntegrationTestSuite(t *testing.T) {
	if os.Getenv("SKIP_AUTH_TESTS") == "true" {
		t.Skip("Skipping auth integration tests")
	}

	suite.Run(t, new(AuthIntegrationTestSuite))
}
