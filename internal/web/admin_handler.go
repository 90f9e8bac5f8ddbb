package web

import (
	"net/http"
	"strconv"

	"github.com/2beens/memberhub/internal/middleware"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// AdminHandler serves the admin user list and user removal
type AdminHandler struct {
	repo      usersRepo
	templates *Templates
}

func NewAdminHandler(repo usersRepo, templates *Templates) *AdminHandler {
	return &AdminHandler{
		repo:      repo,
		templates: templates,
	}
}

func (handler *AdminHandler) SetupRoutes(router *mux.Router, guard *middleware.SessionMiddleware) {
	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(guard.RequireAdmin())
	adminRouter.HandleFunc("", handler.handleListUsers).Methods("GET").Name("admin-users")
	adminRouter.HandleFunc("/delete/{id}", handler.handleDeleteUser).Methods("GET").Name("admin-delete-user")
}

type adminUserView struct {
	ID       int
	Username string
	Email    string
	IsAdmin  bool
}

func (handler *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	allUsers, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("admin list users: %s", err)
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}

	userViews := make([]adminUserView, 0, len(allUsers))
	for _, u := range allUsers {
		email := ""
		if u.Email != nil {
			email = *u.Email
		}
		userViews = append(userViews, adminUserView{
			ID:       u.ID,
			Username: u.Username,
			Email:    email,
			IsAdmin:  u.IsAdmin,
		})
	}

	handler.templates.Render(w, "admin.html", struct {
		Users []adminUserView
	}{
		Users: userViews,
	})
}

func (handler *AdminHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		log.Errorf("admin delete user %d: %s", id, err)
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}

	log.Tracef("admin deleted user %d", id)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
