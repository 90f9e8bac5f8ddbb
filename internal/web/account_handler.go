package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/memberhub/internal/auth"
	"github.com/2beens/memberhub/internal/middleware"
	"github.com/2beens/memberhub/internal/telemetry/metrics"
	"github.com/2beens/memberhub/internal/telemetry/tracing"
	"github.com/2beens/memberhub/internal/users"
	"github.com/2beens/memberhub/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type usersRepo interface {
	Create(ctx context.Context, user *users.User) error
	GetByUsername(ctx context.Context, username string) (*users.User, error)
	All(ctx context.Context) ([]users.User, error)
	Delete(ctx context.Context, id int) error
	SetResetToken(ctx context.Context, email, token string, expire int64) error
	GetByValidResetToken(ctx context.Context, token string, now int64) (*users.User, error)
	UpdatePasswordClearToken(ctx context.Context, id int, passwordHash string) error
}

// AccountHandler serves registration, login, logout and the home page
type AccountHandler struct {
	repo      usersRepo
	sessions  auth.Store
	metrics   *metrics.Manager
	templates *Templates
}

func NewAccountHandler(
	repo usersRepo,
	sessions auth.Store,
	metrics *metrics.Manager,
	templates *Templates,
) *AccountHandler {
	return &AccountHandler{
		repo:      repo,
		sessions:  sessions,
		metrics:   metrics,
		templates: templates,
	}
}

func (handler *AccountHandler) SetupRoutes(router *mux.Router, guard *middleware.SessionMiddleware) {
	router.Handle(
		"/",
		guard.RequireLogin()(http.HandlerFunc(handler.handleHome)),
	).Methods("GET").Name("home")
	router.HandleFunc("/register", handler.handleRegisterForm).Methods("GET").Name("register-form")
	router.HandleFunc("/register", handler.handleRegister).Methods("POST").Name("register")
	router.HandleFunc("/login", handler.handleLoginForm).Methods("GET").Name("login-form")
	router.HandleFunc("/login", handler.handleLogin).Methods("POST").Name("login")
	router.HandleFunc("/logout", handler.handleLogout).Methods("GET").Name("logout")
}

func (handler *AccountHandler) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	handler.templates.Render(w, "register.html", nil)
}

func (handler *AccountHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Errorf("register failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")
	if username == "" {
		http.Error(w, "error, username empty", http.StatusBadRequest)
		return
	}
	if password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	// email is optional at registration, but without one the
	// password reset flow is unavailable for the account
	var email *string
	if e := r.Form.Get("email"); e != "" {
		email = &e
	}

	hashedPassword, err := pkg.HashPassword(password)
	if err != nil {
		log.Errorf("register %s failed, hash password: %s", username, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	user := &users.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	}
	if err := handler.repo.Create(r.Context(), user); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			http.Error(w, "username or email already taken", http.StatusConflict)
			return
		}
		log.Errorf("register %s failed: %s", username, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new user %d [%s] registered", user.ID, user.Username)
	handler.metrics.CounterRegistrations.Inc()

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (handler *AccountHandler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	handler.templates.Render(w, "login.html", nil)
}

func (handler *AccountHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "accountHandler.login")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		log.Errorf("login failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")
	if username == "" || password == "" {
		http.Error(w, "error, username or password empty", http.StatusBadRequest)
		return
	}

	user, err := handler.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			log.Tracef("login failed, no user [%s], from %s", username, pkg.ReadUserIP(r))
			handler.metrics.CounterFailedLogins.Inc()
			http.Error(w, "user does not exist", http.StatusUnauthorized)
			return
		}
		log.Errorf("login %s failed: %s", username, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		log.Tracef("login failed, wrong password for [%s], from %s", username, pkg.ReadUserIP(r))
		handler.metrics.CounterFailedLogins.Inc()
		http.Error(w, "wrong password", http.StatusUnauthorized)
		return
	}

	token, err := handler.sessions.Create(ctx, auth.Session{
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Errorf("login %s failed, create session: %s", username, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	auth.SetSessionCookie(w, token)
	handler.metrics.CounterLogins.Inc()
	log.Tracef("user %d [%s] logged in", user.ID, user.Username)

	http.Redirect(w, r, "/", http.StatusFound)
}

func (handler *AccountHandler) handleHome(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		// guard puts the session on the context, this is a wiring bug
		log.Error("home: no session on request context")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	handler.templates.Render(w, "home.html", struct {
		Username string
		IsAdmin  bool
	}{
		Username: session.Username,
		IsAdmin:  session.IsAdmin,
	})
}

func (handler *AccountHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.TokenFromRequest(r); ok {
		if err := handler.sessions.Destroy(r.Context(), token); err != nil {
			log.Errorf("logout, destroy session: %s", err)
		}
	}
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
