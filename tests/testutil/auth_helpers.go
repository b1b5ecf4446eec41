package testutil

import (
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/middleware"
)

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string, claims *middleware.CustomClaims) *validator.ValidatedClaims {
	if claims == nil {
		claims = &middleware.CustomClaims{}
	}
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: claims,
	}
}

// SetMockAuthContext sets up a mock authenticated context for testing
func SetMockAuthContext(c *gin.Context, userID string, claims *middleware.CustomClaims, accessToken string) {
	c.Set("user_id", userID)
	c.Set("validated_claims", MockValidatedClaims(userID, "https://test.auth0.com/", claims))
	if accessToken != "" {
		c.Set("access_token", accessToken)
	}
}

// MockAuthMiddleware simulates EnsureValidToken for the given subject.
// An empty userID leaves the context unauthenticated.
func MockAuthMiddleware(userID string, claims *middleware.CustomClaims, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			SetMockAuthContext(c, userID, claims, accessToken)
		}
		c.Next()
	}
}

// HeaderAuthMiddleware authenticates whoever is named in the X-Test-User
// header; role and station come from X-Test-Role and X-Test-RTO-Location
func HeaderAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-Test-User")
		if userID == "" {
			c.AbortWithStatusJSON(401, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Failed to validate JWT.",
				},
			})
			return
		}
		SetMockAuthContext(c, userID, &middleware.CustomClaims{
			Email:       c.GetHeader("X-Test-Email"),
			Role:        c.GetHeader("X-Test-Role"),
			RTOLocation: c.GetHeader("X-Test-RTO-Location"),
		}, "")
		c.Next()
	}
}

// CreateTestContext creates a test Gin context
func CreateTestContext() (*gin.Context, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	c, engine := gin.CreateTestContext(nil)
	return c, engine
}
