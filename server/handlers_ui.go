package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/warranty-portal/auth"
	"github.com/jrsteele09/warranty-portal/internal/utils"
	"github.com/jrsteele09/warranty-portal/users"
	"github.com/rs/zerolog/log"
)

const maxLogoBytes = 5 << 20

// ChangePasswordPageData contains data for rendering the change-password page
type ChangePasswordPageData struct {
	pageData
	Required bool // Set when the backend flagged a temporary password
}

// ChangePasswordGetHandler renders the change-password page
func (s *Server) ChangePasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := ChangePasswordPageData{
			pageData: s.newPageData(r, "Change password"),
			Required: s.jar(w, r).MustChangePassword(),
		}
		data.Error = r.URL.Query().Get("error")
		s.render(w, r, "change_password.html", data)
	}
}

func (s *Server) ChangePasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteChangePassword, "Invalid form data")
			return
		}
		if r.PostFormValue("newPassword") != r.PostFormValue("confirmPassword") {
			redirectWithError(w, r, RouteChangePassword, "New passwords do not match")
			return
		}

		jar := s.jar(w, r)
		result := s.auth.ChangePassword(r.Context(), jar, r.PostFormValue("currentPassword"), r.PostFormValue("newPassword"))
		if !result.Status {
			redirectWithError(w, r, RouteChangePassword, result.Message)
			return
		}
		redirectSuccess(w, r, dashboardFor(jar.Role()))
	}
}

// ProfilePageData contains data for rendering the profile page
type ProfilePageData struct {
	pageData
	Profile *users.User
}

// ProfileGetHandler shows the backend's view of the profile, falling back to
// the cached copy when the backend cannot be read.
func (s *Server) ProfileGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := ProfilePageData{pageData: s.newPageData(r, "Profile"), Profile: userFromContext(r.Context())}
		data.Error = r.URL.Query().Get("error")
		data.Message = r.URL.Query().Get("message")

		me := s.auth.GetMe(r.Context(), s.jar(w, r))
		if me.Status {
			if u := profileFromBody(me.Data); u != nil {
				data.Profile = u
			}
		} else if data.Error == "" {
			data.Error = me.Message
		}
		if data.Profile == nil {
			data.Profile = &users.User{}
		}
		s.render(w, r, "profile.html", data)
	}
}

// profileFromBody reads a profile from a flat, "data" or "data.user" body.
func profileFromBody(body map[string]any) *users.User {
	candidate := body
	if data, ok := body["data"].(map[string]any); ok {
		candidate = data
		if nested, ok := data["user"].(map[string]any); ok {
			candidate = nested
		}
	} else if nested, ok := body["user"].(map[string]any); ok {
		candidate = nested
	}
	if _, ok := candidate["email"]; !ok {
		return nil
	}

	var u users.User
	if err := utils.Remarshal(candidate, &u); err != nil {
		return nil
	}
	return &u
}

func (s *Server) ProfilePostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteProfile, "Invalid form data")
			return
		}

		update := auth.ProfileUpdate{}
		for field, target := range map[string]**string{
			"firstName": &update.FirstName,
			"lastName":  &update.LastName,
			"phone":     &update.Phone,
		} {
			if values, ok := r.PostForm[field]; ok {
				*target = utils.Ptr(strings.TrimSpace(values[0]))
			}
		}

		result := s.auth.UpdateMe(r.Context(), s.jar(w, r), update)
		if !result.Status {
			redirectWithError(w, r, RouteProfile, result.Message)
			return
		}
		redirectSuccess(w, r, RouteProfile+"?message="+url.QueryEscape(result.Message))
	}
}

// ProfileLogoHandler uploads a logo and sets it as the avatar.
func (s *Server) ProfileLogoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
		file, header, err := r.FormFile("logo")
		if err != nil {
			redirectWithError(w, r, RouteProfile, "Please choose an image under 5 MB")
			return
		}
		defer file.Close()

		jar := s.jar(w, r)
		upload := s.auth.UploadLogo(r.Context(), jar, header.Filename, file)
		if !upload.Status {
			redirectWithError(w, r, RouteProfile, upload.Message)
			return
		}

		result := s.auth.UpdateMe(r.Context(), jar, auth.ProfileUpdate{Avatar: utils.Ptr(upload.URL)})
		if !result.Status {
			log.Ctx(r.Context()).Warn().Str("url", upload.URL).Msg("logo uploaded but profile not updated")
			redirectWithError(w, r, RouteProfile, result.Message)
			return
		}
		redirectSuccess(w, r, RouteProfile+"?message="+url.QueryEscape("Logo updated"))
	}
}

// DashboardRedirectHandler sends the user to their role's portal.
func (s *Server) DashboardRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectSuccess(w, r, dashboardFor(roleFromContext(r.Context())))
	}
}

// DashboardPageData contains data for rendering a role dashboard
type DashboardPageData struct {
	pageData
	Role    users.Role
	Actions []string
}

var dashboardTitles = map[users.Role]string{
	users.RoleSuperAdmin: "Super admin",
	users.RoleDealer:     "Dealer portal",
	users.RoleCustomer:   "My warranties",
}

// dashboardActions lists what a dashboard offers, in display order, with the
// permission each entry needs.
var dashboardActions = []struct {
	Label      string
	Permission string
}{
	{"Manage dealers", "dealers:write"},
	{"Manage warranty packages", "packages:write"},
	{"Manage customers", "customers:write"},
	{"Register vehicles", "vehicles:write"},
	{"Sell warranties", "warranties:sell"},
	{"Manage warranties", "warranties:write"},
	{"View my warranties", "warranties:read"},
	{"Download documents", "documents:read"},
}

func (s *Server) DashboardHandler(role users.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := DashboardPageData{pageData: s.newPageData(r, dashboardTitles[role]), Role: role}
		u := userFromContext(r.Context())
		for _, action := range dashboardActions {
			if u.HasPermission(action.Permission) {
				data.Actions = append(data.Actions, action.Label)
			}
		}
		s.render(w, r, "dashboard.html", data)
	}
}
