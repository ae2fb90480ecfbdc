package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/warranty-portal/apiclient"
	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/internal/utils"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/jrsteele09/warranty-portal/users"
	"github.com/rs/zerolog/log"
)

// ProfileUpdate is a partial update; nil fields are left alone.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u ProfileUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Phone == nil && u.Avatar == nil
}

// profileFields is what the backend may echo back after an update, either
// flat, under "user", under "data" or under "data.user".
type profileFields struct {
	FirstName *string         `json:"firstName"`
	LastName  *string         `json:"lastName"`
	Phone     *string         `json:"phone"`
	Avatar    json.RawMessage `json:"avatar"` // null clears, absent keeps
	User      *profileFields  `json:"user"`
}

func normalizeProfile(env apiclient.Envelope[profileFields]) profileFields {
	var candidates []*profileFields
	if env.Nested != nil {
		candidates = append(candidates, env.Nested.User, env.Nested)
	}
	candidates = append(candidates, env.Flat.User, &env.Flat)

	var out profileFields
	for _, c := range candidates {
		if c == nil {
			continue
		}
		out.FirstName = firstSet(out.FirstName, c.FirstName)
		out.LastName = firstSet(out.LastName, c.LastName)
		out.Phone = firstSet(out.Phone, c.Phone)
		if out.Avatar == nil {
			out.Avatar = c.Avatar
		}
	}
	return out
}

func firstSet(current, candidate *string) *string {
	if current != nil {
		return current
	}
	return candidate
}

// mergeProfile applies the returned fields over the cached profile.
func mergeProfile(cached *users.User, returned profileFields) *users.User {
	merged := *cached
	merged.FirstName = utils.ValueOr(returned.FirstName, cached.FirstName)
	merged.LastName = utils.ValueOr(returned.LastName, cached.LastName)
	merged.Phone = utils.ValueOr(returned.Phone, cached.Phone)
	switch {
	case returned.Avatar == nil:
	case string(returned.Avatar) == "null":
		merged.Avatar = nil
	default:
		var avatar string
		if err := json.Unmarshal(returned.Avatar, &avatar); err == nil {
			merged.Avatar = &avatar
		}
	}
	return &merged
}

// GetMe returns the backend's view of the signed-in user.
func (s *Service) GetMe(ctx context.Context, jar *session.Jar) ProfileResult {
	if !jar.IsAuthenticated() {
		return ProfileResult{Result: failed(errors.ErrNotAuthenticated, msgNotAuthenticated)}
	}

	status, body, res := s.call(ctx, jar, apiclient.Request{Method: http.MethodGet, Path: apiclient.PathMe}, "profile")
	if !res.Status {
		return ProfileResult{Result: res}
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		log.Warn().Err(err).Msg("profile: unparseable response")
		return ProfileResult{Result: failed(errors.ErrInvalidResponse, msgInvalidResponse)}
	}
	if !apiclient.IsSuccess(status) {
		message, _ := data["message"].(string)
		if message == "" {
			message = fmt.Sprintf("Failed to load profile (status %d)", status)
		}
		return ProfileResult{Result: failed(errors.ErrBackend, message), Data: data}
	}
	return ProfileResult{Result: succeeded(""), Data: data}
}

// UpdateMe sends a partial profile update and merges the backend's answer
// into the cached user cookie. Fields the backend does not return keep
// their cached values.
func (s *Service) UpdateMe(ctx context.Context, jar *session.Jar, update ProfileUpdate) UpdateResult {
	if !jar.IsAuthenticated() {
		return UpdateResult{Result: failed(errors.ErrNotAuthenticated, msgNotAuthenticated)}
	}
	if update.IsEmpty() {
		return UpdateResult{Result: failed(errors.ErrValidation, "Nothing to update")}
	}

	req, err := apiclient.NewJSONRequest(http.MethodPut, apiclient.PathMe, update)
	if err != nil {
		log.Error().Err(err).Msg("profile update: failed to build request")
		return UpdateResult{Result: failed(errors.ErrInternal, msgUnreachable)}
	}
	status, body, res := s.call(ctx, jar, req, "profile update")
	if !res.Status {
		return UpdateResult{Result: res}
	}

	env, err := apiclient.DecodeEnvelope[profileFields](body)
	if err != nil {
		log.Warn().Err(err).Msg("profile update: unparseable response")
		return UpdateResult{Result: failed(errors.ErrInvalidResponse, msgInvalidResponse)}
	}
	if !apiclient.IsSuccess(status) {
		return UpdateResult{Result: failed(errors.ErrBackend, backendMessage(env.ErrorMessage(), "Profile update failed", status))}
	}

	cached, ok := jar.User()
	if !ok {
		cached = &users.User{}
	}
	merged := mergeProfile(cached, normalizeProfile(env))
	if err := jar.SaveUser(merged); err != nil {
		log.Warn().Err(err).Msg("profile update: failed to refresh user cookie")
	}

	return UpdateResult{Result: succeeded(utils.FirstNonEmpty(env.Message, "Profile updated")), User: merged}
}

var logoExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true}

type uploadPayload struct {
	URL string `json:"url"`
}

// UploadLogo stores a single image and returns its URL. It does not touch
// the session; callers follow up with UpdateMe to set the avatar.
func (s *Service) UploadLogo(ctx context.Context, jar *session.Jar, filename string, file io.Reader) UploadResult {
	if !jar.IsAuthenticated() {
		return UploadResult{Result: failed(errors.ErrNotAuthenticated, msgNotAuthenticated)}
	}
	if filename == "" || file == nil {
		return UploadResult{Result: failed(errors.ErrValidation, "An image file is required")}
	}
	if !logoExtensions[strings.ToLower(filepath.Ext(filename))] {
		return UploadResult{Result: failed(errors.ErrValidation, "Only image files can be uploaded")}
	}

	req, err := apiclient.NewMultipartRequest(apiclient.PathUploadLogo, "file", filepath.Base(filename), file, nil)
	if err != nil {
		log.Error().Err(err).Msg("upload: failed to build request")
		return UploadResult{Result: failed(errors.ErrInternal, "Upload failed")}
	}
	status, body, res := s.call(ctx, jar, req, "upload")
	if !res.Status {
		return UploadResult{Result: res}
	}

	env, err := apiclient.DecodeEnvelope[uploadPayload](body)
	if err != nil {
		log.Warn().Err(err).Msg("upload: unparseable response")
		return UploadResult{Result: failed(errors.ErrInvalidResponse, msgInvalidResponse)}
	}
	if !apiclient.IsSuccess(status) || (env.Status != nil && !*env.Status) {
		return UploadResult{Result: failed(errors.ErrBackend, backendMessage(env.ErrorMessage(), "Upload failed", status))}
	}

	nestedURL := ""
	if env.Nested != nil {
		nestedURL = env.Nested.URL
	}
	url := utils.FirstNonEmpty(nestedURL, env.Flat.URL)
	if url == "" {
		return UploadResult{Result: failed(errors.ErrMissingToken, "Upload failed: missing URL in response")}
	}
	return UploadResult{Result: succeeded(""), URL: url}
}

type passwordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword updates the password and lifts the must-change flag.
func (s *Service) ChangePassword(ctx context.Context, jar *session.Jar, currentPassword, newPassword string) Result {
	if !jar.IsAuthenticated() {
		return failed(errors.ErrNotAuthenticated, msgNotAuthenticated)
	}
	if currentPassword == "" || newPassword == "" {
		return failed(errors.ErrValidation, "Current and new password are required")
	}
	if currentPassword == newPassword {
		return failed(errors.ErrValidation, "New password must differ from the current password")
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return failed(errors.ErrValidation, strings.ToUpper(err.Error()[:1])+err.Error()[1:])
	}

	req, err := apiclient.NewJSONRequest(http.MethodPost, apiclient.PathChangePassword, passwordChange{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		log.Error().Err(err).Msg("change password: failed to build request")
		return failed(errors.ErrInternal, msgUnreachable)
	}
	status, body, res := s.call(ctx, jar, req, "change password")
	if !res.Status {
		return res
	}

	env, err := apiclient.DecodeEnvelope[struct{}](body)
	if err != nil {
		log.Warn().Err(err).Msg("change password: unparseable response")
		return failed(errors.ErrInvalidResponse, msgInvalidResponse)
	}
	if !apiclient.IsSuccess(status) {
		return failed(errors.ErrBackend, backendMessage(env.ErrorMessage(), "Password change failed", status))
	}

	if err := jar.SetMustChangePassword(false); err != nil {
		log.Warn().Err(err).Msg("change password: failed to clear flag cookie")
	}
	if u, ok := jar.User(); ok && u.MustChangePassword {
		u.MustChangePassword = false
		if err := jar.SaveUser(u); err != nil {
			log.Warn().Err(err).Msg("change password: failed to refresh user cookie")
		}
	}
	return succeeded(utils.FirstNonEmpty(env.Message, "Password changed"))
}

// call sends an authenticated request and reads the body. A transport
// failure comes back as a failed Result; any HTTP status is returned for
// the caller to interpret.
func (s *Service) call(ctx context.Context, jar *session.Jar, req apiclient.Request, operation string) (int, []byte, Result) {
	resp, err := s.api.Do(ctx, jar, req)
	if err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("backend unreachable")
		return 0, nil, failed(errors.ErrTransport, msgUnreachable)
	}
	body, err := apiclient.ReadBody(resp)
	if err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("failed to read backend response")
		return 0, nil, failed(errors.ErrTransport, msgUnreachable)
	}
	return resp.StatusCode, body, succeeded("")
}

func backendMessage(message, prefix string, status int) string {
	if message != "" {
		return message
	}
	return fmt.Sprintf("%s with status %d", prefix, status)
}
