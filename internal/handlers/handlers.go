package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Totarae/LearningLog/internal/auth"
	"github.com/Totarae/LearningLog/internal/forms"
	"github.com/Totarae/LearningLog/internal/model"
	"github.com/Totarae/LearningLog/internal/service"
	"github.com/Totarae/LearningLog/internal/views"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler объединяет зависимости HTTP-обработчиков.
type Handler struct {
	Journal  *service.JournalService
	Accounts *service.AccountService
	Auth     *auth.Auth
	Views    *views.Renderer
	Forms    *forms.Validator
	Logger   *zap.Logger
}

func NewHandler(journal *service.JournalService, accounts *service.AccountService, a *auth.Auth,
	rd *views.Renderer, logger *zap.Logger) *Handler {
	return &Handler{
		Journal:  journal,
		Accounts: accounts,
		Auth:     a,
		Views:    rd,
		Forms:    forms.New(),
		Logger:   logger,
	}
}

// Index — главная страница.
func (h *Handler) Index(res http.ResponseWriter, req *http.Request) {
	h.Views.Render(res, req, http.StatusOK, views.PageIndex, nil)
}

// NotFound отдаёт страницу 404.
func (h *Handler) NotFound(res http.ResponseWriter, req *http.Request) {
	h.Views.Render(res, req, http.StatusNotFound, views.PageNotFound, nil)
}

// Ping проверяет доступность хранилища.
func (h *Handler) Ping(res http.ResponseWriter, req *http.Request) {
	if err := h.Journal.Ping(req.Context()); err != nil {
		h.Logger.Error("storage ping failed", zap.Error(err))
		http.Error(res, "storage unavailable", http.StatusInternalServerError)
		return
	}
	res.WriteHeader(http.StatusOK)
}

// fail отвечает 404 для ErrNotFound и 500 для остальных ошибок.
func (h *Handler) fail(res http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		h.NotFound(res, req)
		return
	}
	h.Logger.Error("request failed",
		zap.String("method", req.Method),
		zap.String("uri", req.RequestURI),
		zap.Error(err))
	http.Error(res, "Internal Server Error", http.StatusInternalServerError)
}

// idParam читает числовой параметр пути. Нечисловой ID равносилен отсутствию записи.
func idParam(req *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(req, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.ErrNotFound
	}
	return id, nil
}

// currentUser возвращает пользователя, положенного в контекст middleware.Session.
func currentUser(req *http.Request) *model.User {
	return auth.ForContext(req.Context())
}

func writeJSON(res http.ResponseWriter, status int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_ = json.NewEncoder(res).Encode(v)
}
