package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/services"
	"github.com/kendall-kelly/rto-dispatch-api/utils"
)

// ProfileController exposes the caller's own profile
type ProfileController struct {
	resolver *services.ProfileResolver
}

// NewProfileController creates a profile controller
func NewProfileController(resolver *services.ProfileResolver) *ProfileController {
	return &ProfileController{resolver: resolver}
}

// GetMyProfile handles GET /api/v1/profiles/me - resolves or provisions the caller's profile
func (pc *ProfileController) GetMyProfile(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	profile, provisioned, err := pc.resolver.ResolveOrProvision(c.Request.Context(), caller)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	status := http.StatusOK
	if provisioned {
		status = http.StatusCreated
	}
	utils.Succeed(c, status, profile)
}
