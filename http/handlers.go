package http

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"burnoutwatch/account"
	"burnoutwatch/ml"
	"burnoutwatch/models"
	"burnoutwatch/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxRequestSize = 1 << 20

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Store is the persistence the handlers need.
type Store interface {
	account.UserIDChecker
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUserID(ctx context.Context, userID string) (*models.User, error)
	InsertDailyEntry(ctx context.Context, e *models.DailyEntry) error
	RecentDailyEntries(ctx context.Context, userID string, limit int) ([]models.DailyEntry, error)
	CountDailyEntries(ctx context.Context, userID string) (int, error)
	LatestTrainingRun(ctx context.Context) (*models.TrainingRun, error)
}

// Handlers serves every route. A nil model leaves the server usable for
// everything except prediction.
type Handlers struct {
	store    Store
	sessions *session.Manager
	issuer   *account.Issuer
	model    ml.Classifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandlers(store Store, sessions *session.Manager, model ml.Classifier, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		store:    store,
		sessions: sessions,
		issuer:   account.NewIssuer(store, nil),
		model:    model,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the clock that dates new entries.
func (h *Handlers) SetClock(now func() time.Time) {
	h.now = now
}

func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		RecoveryMiddleware(h.logger),
		LoggerMiddleware(h.logger),
		SecurityHeadersMiddleware,
		RequestSizeMiddleware(maxRequestSize),
		SessionMiddleware(h.sessions, h.logger),
	)

	r.Get("/", h.page("index.html"))
	r.Get("/healthz", h.handleHealth)
	r.Get("/register", h.page("register.html"))
	r.Post("/register", h.handleRegister)
	r.Get("/login", h.page("login.html"))
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(RequirePending)
		r.Get("/details", h.handleDetails)
		r.Get("/set-password", h.page("set_password.html"))
		r.Post("/set-password", h.handleSetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Get("/menu", h.page("menu.html"))
		r.Get("/suggestion", h.page("suggestion.html"))
		r.Get("/dashboard", h.handleDashboard)
		r.Post("/predict", h.handlePredict)
		r.Get("/history", h.handleHistory)
	})

	return r
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"model_loaded": h.model != nil,
	})
}

type pageData struct {
	UserID string
}

func (h *Handlers) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name)
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, pageData{UserID: GetSession(r.Context()).UserID}); err != nil {
		h.logger.Error("render page", zap.String("page", name), zap.Error(err))
	}
}

// serverError logs err with the request id and answers 500 without leaking
// details.
func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
