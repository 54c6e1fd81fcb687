package http

import (
	"errors"
	"net/http"
	"strings"

	"burnoutwatch/account"
	"burnoutwatch/db"
	"burnoutwatch/models"
	"burnoutwatch/session"

	"go.uber.org/zap"
)

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("name"))
	mobile := r.PostFormValue("mobile")

	if err := account.ValidateName(name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := account.ValidateMobile(mobile); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, err := h.issuer.IssueUserID(r.Context(), name)
	if errors.Is(err, account.ErrUserIDExhausted) {
		http.Error(w, "No user id available for this name", http.StatusConflict)
		return
	}
	if err != nil {
		h.serverError(w, r, "issue user id", err)
		return
	}

	s := GetSession(r.Context())
	s.Pending = &session.PendingRegistration{
		Name:       account.DisplayName(name),
		DOB:        r.PostFormValue("dob"),
		Mobile:     mobile,
		Profession: r.PostFormValue("profession"),
		UserID:     userID,
	}
	if err := h.sessions.Save(r.Context(), w, s); err != nil {
		h.serverError(w, r, "save session", err)
		return
	}
	http.Redirect(w, r, "/details", http.StatusFound)
}

func (h *Handlers) handleDetails(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetSession(r.Context()).Pending)
}

func (h *Handlers) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	password := r.PostFormValue("password")
	if password != r.PostFormValue("confirm_password") {
		http.Error(w, "Passwords do not match", http.StatusBadRequest)
		return
	}
	if password == "" {
		http.Error(w, "Password must not be empty", http.StatusBadRequest)
		return
	}

	hash, err := account.HashPassword(password)
	if err != nil {
		h.serverError(w, r, "hash password", err)
		return
	}

	s := GetSession(r.Context())
	pending := s.Pending
	user := &models.User{
		Name:         pending.Name,
		DOB:          pending.DOB,
		Mobile:       pending.Mobile,
		Profession:   pending.Profession,
		UserID:       pending.UserID,
		PasswordHash: hash,
	}
	createErr := h.store.CreateUser(r.Context(), user)
	if createErr != nil && !errors.Is(createErr, db.ErrDuplicateUserID) {
		h.serverError(w, r, "create user", createErr)
		return
	}

	s.Pending = nil
	if err := h.sessions.Save(r.Context(), w, s); err != nil {
		h.serverError(w, r, "save session", err)
		return
	}
	if createErr != nil {
		http.Error(w, "User id was taken meanwhile, please register again", http.StatusConflict)
		return
	}

	h.logger.Info("user registered", zap.String("user_id", user.UserID))
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PostFormValue("user_id"))
	password := r.PostFormValue("password")

	user, err := h.store.GetUserByUserID(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		h.render(w, r, http.StatusUnauthorized, "invalid.html")
		return
	}
	if err != nil {
		h.serverError(w, r, "look up user", err)
		return
	}

	ok, err := account.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		h.logger.Warn("stored password hash unreadable", zap.String("user_id", userID), zap.Error(err))
	}
	if !ok {
		h.render(w, r, http.StatusUnauthorized, "invalid.html")
		return
	}

	s := GetSession(r.Context())
	s.UserID = user.UserID
	s.Pending = nil
	if err := h.sessions.Rotate(r.Context(), w, s); err != nil {
		h.serverError(w, r, "rotate session", err)
		return
	}
	http.Redirect(w, r, "/menu", http.StatusFound)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, GetSession(r.Context())); err != nil {
		h.serverError(w, r, "destroy session", err)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
