package webapp

import (
	"net/http"
	"strings"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/session"
)

func (a *App) loginForm(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))

	if a.sessions.Snapshot().IsAuthenticated() {
		http.Redirect(w, r, next, http.StatusSeeOther)

		return
	}

	a.sessions.ClearError()

	a.render(w, r, http.StatusOK, View{View: "login", Params: map[string]string{"next": next}}) //nolint:exhaustruct
}

func (a *App) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.render(w, r, http.StatusBadRequest, View{View: "login", Error: "Invalid form submission."}) //nolint:exhaustruct

		return
	}

	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	next := safeNext(r.PostForm.Get("next"))
	params := map[string]string{"next": next, "email": email}

	if email == "" || password == "" {
		a.render(w, r, http.StatusBadRequest, View{ //nolint:exhaustruct
			View:   "login",
			Error:  "Email and password are required.",
			Params: params,
		})

		return
	}

	if _, err := a.sessions.Login(r.Context(), email, password); err != nil {
		a.render(w, r, statusFor(err), View{View: "login", Error: a.errorMessage(err), Params: params}) //nolint:exhaustruct

		return
	}

	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (a *App) registerForm(w http.ResponseWriter, r *http.Request) {
	if a.sessions.Snapshot().IsAuthenticated() {
		http.Redirect(w, r, defaultNext, http.StatusSeeOther)

		return
	}

	a.sessions.ClearError()

	a.render(w, r, http.StatusOK, View{View: "register"}) //nolint:exhaustruct
}

func (a *App) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.render(w, r, http.StatusBadRequest, View{View: "register", Error: "Invalid form submission."}) //nolint:exhaustruct

		return
	}

	fullName := strings.TrimSpace(r.PostForm.Get("full_name"))
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	confirm := r.PostForm.Get("confirm_password")
	params := map[string]string{"full_name": fullName, "email": email}

	if msg := a.validateRegistration(fullName, email, password, confirm); msg != "" {
		a.render(w, r, http.StatusBadRequest, View{View: "register", Error: msg, Params: params}) //nolint:exhaustruct

		return
	}

	if _, err := a.sessions.Register(r.Context(), fullName, email, password); err != nil {
		a.render(w, r, statusFor(err), View{View: "register", Error: a.errorMessage(err), Params: params}) //nolint:exhaustruct

		return
	}

	http.Redirect(w, r, defaultNext, http.StatusSeeOther)
}

func (a *App) validateRegistration(fullName, email, password, confirm string) string {
	switch {
	case fullName == "" || email == "" || password == "" || confirm == "":
		return "All fields are required."
	case password != confirm:
		return "Passwords do not match."
	case len(password) < a.cfg.MinPasswordLength:
		return "Password is too short."
	default:
		return ""
	}
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Logout(r.Context())

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) profile(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, View{View: "profile", User: a.currentUser(r)}) //nolint:exhaustruct
}

func (a *App) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.render(w, r, http.StatusBadRequest, View{View: "profile", Error: "Invalid form submission."}) //nolint:exhaustruct

		return
	}

	patch := profilePatchFromForm(r)

	if patch.FullName != nil && *patch.FullName == "" {
		a.render(w, r, http.StatusBadRequest, View{ //nolint:exhaustruct
			View:  "profile",
			User:  a.currentUser(r),
			Error: "Full name is required.",
		})

		return
	}

	principal, err := a.sessions.UpdateProfile(r.Context(), patch)
	if err != nil {
		a.render(w, r, statusFor(err), View{ //nolint:exhaustruct
			View:  "profile",
			User:  a.currentUser(r),
			Error: session.Message(err),
		})

		return
	}

	if principal == nil {
		http.Redirect(w, r, "/login?next=%2Fprofile", http.StatusSeeOther)

		return
	}

	a.render(w, r, http.StatusOK, View{View: "profile", User: principal}) //nolint:exhaustruct
}

// profilePatchFromForm includes only the fields present in the submission.
func profilePatchFromForm(r *http.Request) domain.ProfilePatch {
	field := func(name string) *string {
		if _, ok := r.PostForm[name]; !ok {
			return nil
		}

		value := strings.TrimSpace(r.PostForm.Get(name))

		return &value
	}

	return domain.ProfilePatch{
		FullName:  field("full_name"),
		Email:     field("email"),
		Bio:       field("bio"),
		AvatarURL: field("avatar_url"),
	}
}
