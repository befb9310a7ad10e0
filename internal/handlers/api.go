package handlers

import (
	"errors"
	"net/http"

	"github.com/Totarae/LearningLog/internal/model"
	"github.com/Totarae/LearningLog/internal/service"
	"go.uber.org/zap"
)

// APITopics отдаёт темы пользователя в JSON.
func (h *Handler) APITopics(res http.ResponseWriter, req *http.Request) {
	user := currentUser(req)
	if user == nil {
		writeJSON(res, http.StatusUnauthorized, model.ErrorResponse{Error: "authentication required"})
		return
	}
	topics, err := h.Journal.Topics(req.Context(), user.ID)
	if err != nil {
		h.apiFail(res, req, err)
		return
	}
	if topics == nil {
		topics = []*model.Topic{}
	}
	writeJSON(res, http.StatusOK, topics)
}

// APITopic отдаёт тему и её записи в JSON.
func (h *Handler) APITopic(res http.ResponseWriter, req *http.Request) {
	user := currentUser(req)
	if user == nil {
		writeJSON(res, http.StatusUnauthorized, model.ErrorResponse{Error: "authentication required"})
		return
	}
	topicID, err := idParam(req, "topicID")
	if err != nil {
		h.apiFail(res, req, err)
		return
	}
	topic, entries, err := h.Journal.Topic(req.Context(), user.ID, topicID)
	if err != nil {
		h.apiFail(res, req, err)
		return
	}
	if entries == nil {
		entries = []*model.Entry{}
	}
	writeJSON(res, http.StatusOK, model.TopicResponse{Topic: topic, Entries: entries})
}

func (h *Handler) apiFail(res http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		writeJSON(res, http.StatusNotFound, model.ErrorResponse{Error: "not found"})
		return
	}
	h.Logger.Error("api request failed", zap.String("uri", req.RequestURI), zap.Error(err))
	writeJSON(res, http.StatusInternalServerError, model.ErrorResponse{Error: "internal error"})
}
