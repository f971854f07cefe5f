package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/esports-hub/gateway"
	"github.com/Dosada05/esports-hub/middleware"
	"github.com/Dosada05/esports-hub/pages"
	"github.com/Dosada05/esports-hub/services"
)

// SessionWriter сохраняет выданную сессию в cookie ответа.
type SessionWriter interface {
	Persist(w http.ResponseWriter, s *gateway.Session)
}

type authView struct {
	Mode     string        `json:"mode"`
	Email    string        `json:"email,omitempty"`
	Username string        `json:"username,omitempty"`
	FullName string        `json:"full_name,omitempty"`
	Notice   *pages.Notice `json:"notice,omitempty"`
}

type AuthHandler struct {
	authService services.AuthService
	sessions    SessionWriter
	provider    *middleware.SessionProvider
	rs          *Responder
	logger      *slog.Logger
}

func NewAuthHandler(authService services.AuthService, sessions SessionWriter, provider *middleware.SessionProvider, rs *Responder, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		provider:    provider,
		rs:          rs,
		logger:      logger,
	}
}

func (h *AuthHandler) Page(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	mode := "signin"
	if r.URL.Query().Get("mode") == "signup" {
		mode = "signup"
	}
	h.rs.render(w, r, page{name: "auth", title: "Sign in", area: "public"}, authView{Mode: mode})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var input services.SignInInput
	if isJSONBody(r) {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	} else {
		input.Email = r.FormValue("email")
		input.Password = r.FormValue("password")
	}

	sess, err := h.authService.SignIn(r.Context(), input)
	if err != nil {
		h.formError(w, r, err, authView{Mode: "signin", Email: input.Email})
		return
	}

	h.sessions.Persist(w, sess)
	h.logger.Info("user signed in", slog.String("user_id", sess.User.ID.String()))
	h.rs.done(w, r, http.StatusOK, jsonResponse{"user": sess.User, "expires_at": sess.ExpiresAt}, "/dashboard", nil)
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var input services.SignUpInput
	if isJSONBody(r) {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	} else {
		input = services.SignUpInput{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			Username: r.FormValue("username"),
			FullName: r.FormValue("full_name"),
		}
	}

	sess, err := h.authService.SignUp(r.Context(), input)
	if err != nil {
		h.formError(w, r, err, authView{
			Mode:     "signup",
			Email:    input.Email,
			Username: input.Username,
			FullName: input.FullName,
		})
		return
	}

	h.sessions.Persist(w, sess)
	h.rs.done(w, r, http.StatusCreated, jsonResponse{"user": sess.User, "expires_at": sess.ExpiresAt},
		"/dashboard", pages.Success("Welcome to Esports Hub!"))
}

// SignOut идемпотентен: без сессии просто уводит на главную.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.provider.SignOut(w, r)
	h.rs.done(w, r, http.StatusOK, jsonResponse{"message": "signed out"}, "/", nil)
}

// formError показывает форму заново с введёнными значениями (кроме пароля).
func (h *AuthHandler) formError(w http.ResponseWriter, r *http.Request, err error, view authView) {
	h.rs.logWriteError(r, err)
	if middleware.WantsJSON(r) {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	view.Notice = pages.Failure(err, knownErrors...)
	h.rs.render(w, r, page{name: "auth", title: "Sign in", area: "public", status: statusForError(err)}, view)
}
