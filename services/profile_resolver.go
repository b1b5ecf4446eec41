package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kendall-kelly/rto-dispatch-api/models"
)

// SessionClaims are the profile attributes carried by the caller's session token.
// Empty strings mean the attribute is absent.
type SessionClaims struct {
	Email         string
	ImageURL      string
	Role          string
	VehicleNumber string
	RTOLocation   string
}

// Caller is an authenticated request principal
type Caller struct {
	ExternalID  string
	AccessToken string
	Claims      SessionClaims
}

// ProvisionRequest is a validated request to create a profile from session claims
type ProvisionRequest struct {
	ExternalID string
	Fields     ProfileFields
}

// ProvisionRequest validates the claims. Email may be filled in later from
// userinfo, so it is not checked here.
func (c SessionClaims) ProvisionRequest(externalID string) (ProvisionRequest, error) {
	role, ok := models.ParseRole(c.Role)
	if !ok {
		return ProvisionRequest{}, newError(ErrProfileIncomplete, "PROFILE_INCOMPLETE",
			"Profile not found. Please set role and rtoLocation in your identity metadata.")
	}
	rtoLocation := strings.TrimSpace(c.RTOLocation)
	if rtoLocation == "" {
		return ProvisionRequest{}, newError(ErrProfileIncomplete, "PROFILE_INCOMPLETE",
			"Profile not found. Please set role and rtoLocation in your identity metadata.")
	}

	return ProvisionRequest{
		ExternalID: externalID,
		Fields: ProfileFields{
			Email:         strings.TrimSpace(c.Email),
			ImageURL:      optional(c.ImageURL),
			Role:          role,
			VehicleNumber: optional(c.VehicleNumber),
			RTOLocation:   rtoLocation,
		},
	}, nil
}

// ProfileResolver maps a caller to its profile, provisioning one from the
// session claims the first time an identity is seen
type ProfileResolver struct {
	profiles *ProfileStore
	userInfo UserInfoFetcher
	logger   *slog.Logger
}

// NewProfileResolver creates a resolver. userInfo may be nil, in which case
// the email must come from the session claims.
func NewProfileResolver(profiles *ProfileStore, userInfo UserInfoFetcher, logger *slog.Logger) *ProfileResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileResolver{profiles: profiles, userInfo: userInfo, logger: logger}
}

// Resolve returns the caller's existing profile without provisioning
func (r *ProfileResolver) Resolve(ctx context.Context, caller Caller) (*models.Profile, error) {
	if caller.ExternalID == "" {
		return nil, newError(ErrUnauthorized, "UNAUTHORIZED", "Could not extract user information")
	}
	return r.profiles.FindByExternalID(ctx, caller.ExternalID)
}

// ResolveOrProvision returns the caller's profile, creating it from session
// claims if none exists. The bool reports whether this call provisioned it.
func (r *ProfileResolver) ResolveOrProvision(ctx context.Context, caller Caller) (*models.Profile, bool, error) {
	profile, err := r.Resolve(ctx, caller)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	req, err := caller.Claims.ProvisionRequest(caller.ExternalID)
	if err != nil {
		return nil, false, err
	}

	if req.Fields.Email == "" {
		req.Fields.Email = r.lookupEmail(ctx, caller)
	}
	if req.Fields.Email == "" {
		return nil, false, newError(ErrProfileIncomplete, "PROFILE_INCOMPLETE",
			"Profile not found and no email is available to create one")
	}

	profile, created, err := r.profiles.InsertIfAbsent(ctx, req.ExternalID, req.Fields)
	if err != nil {
		return nil, false, err
	}
	if created {
		r.logger.Info("provisioned profile from session claims",
			"operation", "resolve_profile",
			"caller_id", caller.ExternalID,
			"role", profile.Role,
			"rto_location", profile.RTOLocation)
	}
	return profile, created, nil
}

func (r *ProfileResolver) lookupEmail(ctx context.Context, caller Caller) string {
	if r.userInfo == nil || caller.AccessToken == "" {
		return ""
	}
	info, err := r.userInfo.GetUserInfo(ctx, caller.AccessToken)
	if err != nil {
		r.logger.Warn("userinfo lookup failed", "operation", "resolve_profile", "caller_id", caller.ExternalID, "error", err)
		return ""
	}
	return strings.TrimSpace(info.Email)
}
