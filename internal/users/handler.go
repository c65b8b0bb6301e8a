package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/muvance-crm/pkg/logging"
)

// Handler serves login and account management.
type Handler struct {
	svc    *Service
	logger *logging.Logger
	now    func() time.Time
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger, now: time.Now}
}

type fieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Message  string `json:"message"`
	Token    string `json:"token"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Login exchanges a username or email and password for a bearer token.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var errs []fieldError
	if strings.TrimSpace(req.Identifier) == "" {
		errs = append(errs, fieldError{Field: "identifier", Msg: "Username or email is required"})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Field: "password", Msg: "Password is required"})
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Identifier, req.Password, h.now())
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeMessage(w, http.StatusUnauthorized, "Invalid username or email")
		return
	case errors.Is(err, ErrInvalidPassword):
		writeMessage(w, http.StatusUnauthorized, "Invalid password")
		return
	case err != nil:
		h.logger.Error("login failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Message:  "Login successful",
		Token:    token,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
	})
}

// AddUser creates a non-admin operator. Mounted behind the admin guard.
// POST /api/settings/add-user
func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var errs []fieldError
	if strings.TrimSpace(req.Username) == "" {
		errs = append(errs, fieldError{Field: "username", Msg: "Username is required"})
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil || !strings.Contains(req.Email, ".") {
		errs = append(errs, fieldError{Field: "email", Msg: "Valid email is required"})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Field: "password", Msg: "Password is required"})
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	u, err := h.svc.AddUser(r.Context(), req)
	if errors.Is(err, ErrUserExists) {
		writeMessage(w, http.StatusBadRequest, "Username or email already exists")
		return
	}
	if err != nil {
		h.logger.Error("failed to create user", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    map[string]string{"username": u.Username, "email": u.Email},
	})
}
