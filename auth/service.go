package auth

import (
	"errors"

	"github.com/jrsteele09/warranty-portal/apiclient"
	"github.com/jrsteele09/warranty-portal/users"
)

// User-facing messages. Internal detail goes to the log, never here.
const (
	msgCredentialsRequired = "Email and password are required"
	msgUnreachable         = "Unable to reach the server. Please try again."
	msgInvalidResponse     = "Invalid server response"
	msgMissingToken        = "Login failed: Missing token in response"
	msgNotAuthenticated    = "Your session has expired. Please sign in again."
)

// Result is the outcome of every operation in this package. Operations
// never panic or return bare errors; Err carries a sentinel from
// internal/errors for callers that need to branch on the cause.
type Result struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

func succeeded(message string) Result {
	return Result{Status: true, Message: message}
}

func failed(err error, message string) Result {
	return Result{Status: false, Message: message, Err: err}
}

// LoginResult adds the signed-in user's role and profile.
type LoginResult struct {
	Result
	Role               users.Role  `json:"role,omitempty"`
	MustChangePassword bool        `json:"mustChangePassword,omitempty"`
	User               *users.User `json:"-"`
}

// ProfileResult carries the backend's /auth/me body as returned.
type ProfileResult struct {
	Result
	Data map[string]any `json:"data,omitempty"`
}

// UpdateResult carries the merged profile written to the user cookie.
type UpdateResult struct {
	Result
	User *users.User `json:"user,omitempty"`
}

// UploadResult carries the stored file's URL.
type UploadResult struct {
	Result
	URL string `json:"url,omitempty"`
}

// Service implements the session and credential lifecycle against the backend.
type Service struct {
	api    *apiclient.Client
	policy ValidationPolicy
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithValidationPolicy overrides the session validator's failure policy.
func WithValidationPolicy(policy ValidationPolicy) ServiceOption {
	return func(s *Service) {
		s.policy = policy
	}
}

// NewService creates the service. The API client is required.
func NewService(api *apiclient.Client, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api client is required")
	}

	s := &Service{
		api:    api,
		policy: DefaultValidationPolicy(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Policy returns the active validation policy.
func (s *Service) Policy() ValidationPolicy {
	return s.policy
}
