package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/memberhub/internal/telemetry/metrics"
	"github.com/2beens/memberhub/internal/telemetry/tracing"
	"github.com/2beens/memberhub/internal/users"
	"github.com/2beens/memberhub/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	// a reset link is single-use and short-lived
	resetTokenTTL = 15 * time.Minute
	// 32 random bytes, 64 hex chars on the wire
	resetTokenBytes = 32
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, resetLink string) error
}

// PasswordResetHandler serves the forgot-password and reset-password flow
type PasswordResetHandler struct {
	repo         usersRepo
	mailer       Mailer
	resetURLBase string
	metrics      *metrics.Manager
	templates    *Templates
	// ability to inject random hex generator func for tokens (for unit and dev testing)
	RandHexFunc func(n int) (string, error)
}

func NewPasswordResetHandler(
	repo usersRepo,
	mailer Mailer,
	resetURLBase string,
	metrics *metrics.Manager,
	templates *Templates,
) *PasswordResetHandler {
	return &PasswordResetHandler{
		repo:         repo,
		mailer:       mailer,
		resetURLBase: resetURLBase,
		metrics:      metrics,
		templates:    templates,
		RandHexFunc:  pkg.GenerateRandomHexString,
	}
}

func (handler *PasswordResetHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/forgot", handler.handleForgotForm).Methods("GET").Name("forgot-form")
	router.HandleFunc("/forgot", handler.handleForgot).Methods("POST").Name("forgot")
	router.HandleFunc("/reset/{token}", handler.handleResetForm).Methods("GET").Name("reset-form")
	router.HandleFunc("/reset/{token}", handler.handleReset).Methods("POST").Name("reset")
}

func (handler *PasswordResetHandler) handleForgotForm(w http.ResponseWriter, r *http.Request) {
	handler.templates.Render(w, "forgot.html", nil)
}

func (handler *PasswordResetHandler) handleForgot(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "passwordResetHandler.forgot")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		log.Errorf("forgot password failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	email := r.Form.Get("email")
	if email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}

	token, err := handler.RandHexFunc(resetTokenBytes)
	if err != nil {
		log.Errorf("forgot password failed, generate token: %s", err)
		http.Error(w, "failed to create reset token", http.StatusInternalServerError)
		return
	}

	expire := time.Now().Add(resetTokenTTL).UnixMilli()
	if err := handler.repo.SetResetToken(ctx, email, token, expire); err != nil {
		if errors.Is(err, users.ErrEmailNotFound) {
			log.Tracef("forgot password, unknown email, from %s", pkg.ReadUserIP(r))
			http.Error(w, "email is not registered", http.StatusNotFound)
			return
		}
		log.Errorf("forgot password failed, store token: %s", err)
		http.Error(w, "failed to create reset token", http.StatusInternalServerError)
		return
	}

	resetLink := strings.TrimSuffix(handler.resetURLBase, "/") + "/" + token
	if err := handler.mailer.SendPasswordReset(ctx, email, resetLink); err != nil {
		log.Errorf("forgot password failed, send email: %s", err)
		http.Error(w, "failed to send reset email", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterResetEmails.Inc()
	log.Tracef("reset email sent to [%s]", email)

	pkg.WriteTextResponseOK(w, "reset email sent")
}

// handleResetForm renders the new password form for any token; the
// token is checked against the store only when the form is submitted
func (handler *PasswordResetHandler) handleResetForm(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	handler.templates.Render(w, "reset.html", struct {
		Token string
	}{
		Token: vars["token"],
	})
}

func (handler *PasswordResetHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "passwordResetHandler.reset")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		log.Errorf("reset password failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	password := r.Form.Get("password")
	if password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	token := mux.Vars(r)["token"]
	user, err := handler.repo.GetByValidResetToken(ctx, token, time.Now().UnixMilli())
	if err != nil {
		if errors.Is(err, users.ErrTokenInvalidOrExpired) {
			log.Tracef("reset password, invalid or expired token, from %s", pkg.ReadUserIP(r))
			http.Error(w, "invalid or expired token", http.StatusBadRequest)
			return
		}
		log.Errorf("reset password failed: %s", err)
		http.Error(w, "reset password failed", http.StatusInternalServerError)
		return
	}

	hashedPassword, err := pkg.HashPassword(password)
	if err != nil {
		log.Errorf("reset password for %d failed, hash password: %s", user.ID, err)
		http.Error(w, "reset password failed", http.StatusInternalServerError)
		return
	}

	if err := handler.repo.UpdatePasswordClearToken(ctx, user.ID, hashedPassword); err != nil {
		log.Errorf("reset password for %d failed, update: %s", user.ID, err)
		http.Error(w, "reset password failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("user %d [%s] reset their password", user.ID, user.Username)

	pkg.WriteTextResponseOK(w, "password updated, please log in")
}
