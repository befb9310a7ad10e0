package handlers

import (
	"fmt"
	"net/http"

	"github.com/Totarae/LearningLog/internal/forms"
	"github.com/Totarae/LearningLog/internal/model"
	"github.com/Totarae/LearningLog/internal/views"
)

// requireUser возвращает текущего пользователя или перенаправляет на вход.
// Обычно анонимные запросы отсекает middleware.RequireLogin раньше.
func (h *Handler) requireUser(res http.ResponseWriter, req *http.Request) (*model.User, bool) {
	user := currentUser(req)
	if user == nil {
		http.Redirect(res, req, LoginURL(req.URL.RequestURI()), http.StatusFound)
		return nil, false
	}
	return user, true
}

// Topics показывает все темы пользователя.
func (h *Handler) Topics(res http.ResponseWriter, req *http.Request) {
	user, ok := h.requireUser(res, req)
	if !ok {
		return
	}
	topics, err := h.Journal.Topics(req.Context(), user.ID)
	if err != nil {
		h.fail(res, req, err)
		return
	}
	h.Views.Render(res, req, http.StatusOK, views.PageTopics, views.Data{"Topics": topics})
}

// Topic показывает тему и её записи.
func (h *Handler) Topic(res http.ResponseWriter, req *http.Request) {
	user, ok := h.requireUser(res, req)
	if !ok {
		return
	}
	topicID, err := idParam(req, "topicID")
	if err != nil {
		h.fail(res, req, err)
		return
	}
	topic, entries, err := h.Journal.Topic(req.Context(), user.ID, topicID)
	if err != nil {
		h.fail(res, req, err)
		return
	}
	h.Views.Render(res, req, http.StatusOK, views.PageTopic, views.Data{"Topic": topic, "Entries": entries})
}

// NewTopic показывает пустую форму или сохраняет новую тему.
func (h *Handler) NewTopic(res http.ResponseWriter, req *http.Request) {
	user, ok := h.requireUser(res, req)
	if !ok {
		return
	}

	var form forms.TopicForm
	errs := forms.Errors{}
	if req.Method == http.MethodPost {
		var err error
		errs, err = h.Forms.Bind(req, &form)
		if err != nil {
			http.Error(res, "Bad Request", http.StatusBadRequest)
			return
		}
		if errs.Valid() {
			if _, err := h.Journal.CreateTopic(req.Context(), user.ID, form.Text); err != nil {
				h.fail(res, req, err)
				return
			}
			http.Redirect(res, req, "/success/", http.StatusFound)
			return
		}
	}
	h.Views.Render(res, req, http.StatusOK, views.PageNewTopic, views.Data{"Form": form, "Errors": errs})
}

// Success подтверждает создание последней темы пользователя.
func (h *Handler) Success(res http.ResponseWriter, req *http.Request) {
	user, ok := h.requireUser(res, req)
	if !ok {
		return
	}
	topic, err := h.Journal.LatestTopic(req.Context(), user.ID)
	if err != nil {
		h.fail(res, req, err)
		return
	}
	h.Views.Render(res, req, http.StatusOK, views.PageSuccess, views.Data{"Topic": topic})
}

// NewEntry добавляет запись в тему пользователя.
func (h *Handler) NewEntry(res http.ResponseWriter, req *http.Request) {
	user, ok := h.requireUser(res, req)
	if !ok {
		return
	}
	topicID, err := idParam(req, "topicID")
	if err != nil {
		h.fail(res, req, err)
		return
	}
	topic, err := h.Journal.OwnedTopic(req.Context(), user.ID, topicID)
	if err != nil {
		h.fail(res, req, err)
		return
	}

	var form forms.EntryForm
	errs := forms.Errors{}
	if req.Method == http.MethodPost {
		errs, err = h.Forms.Bind(req, &form)
		if err != nil {
			http.Error(res, "Bad Request", http.StatusBadRequest)
			return
		}
		if errs.Valid() {
			if _, err := h.Journal.CreateEntry(req.Context(), user.ID, topic.ID, form.Text); err != nil {
				h.fail(res, req, err)
				return
			}
			http.Redirect(res, req, topicURL(topic.ID), http.StatusFound)
			return
		}
	}
	h.Views.Render(res, req, http.StatusOK, views.PageNewEntry, views.Data{"Topic": topic, "Form": form, "Errors": errs})
}

// EditEntry показывает заполненную форму или сохраняет изменённый текст.
func (h *Handler) EditEntry(res http.ResponseWriter, req *http.Request) {
	user, ok := h.requireUser(res, req)
	if !ok {
		return
	}
	entryID, err := idParam(req, "entryID")
	if err != nil {
		h.fail(res, req, err)
		return
	}
	entry, topic, err := h.Journal.OwnedEntry(req.Context(), user.ID, entryID)
	if err != nil {
		h.fail(res, req, err)
		return
	}

	form := forms.EntryForm{Text: entry.Text}
	errs := forms.Errors{}
	if req.Method == http.MethodPost {
		form = forms.EntryForm{}
		errs, err = h.Forms.Bind(req, &form)
		if err != nil {
			http.Error(res, "Bad Request", http.StatusBadRequest)
			return
		}
		if errs.Valid() {
			if _, err := h.Journal.UpdateEntry(req.Context(), user.ID, entry.ID, form.Text); err != nil {
				h.fail(res, req, err)
				return
			}
			http.Redirect(res, req, topicURL(topic.ID), http.StatusFound)
			return
		}
	}
	h.Views.Render(res, req, http.StatusOK, views.PageEditEntry, views.Data{
		"Entry": entry, "Topic": topic, "Form": form, "Errors": errs,
	})
}

// RemoveEntry по GET спрашивает подтверждение, по POST удаляет запись
// пользователя и возвращает к теме.
func (h *Handler) RemoveEntry(res http.ResponseWriter, req *http.Request) {
	user, ok := h.requireUser(res, req)
	if !ok {
		return
	}
	entryID, err := idParam(req, "entryID")
	if err != nil {
		h.fail(res, req, err)
		return
	}

	if req.Method != http.MethodPost {
		entry, topic, err := h.Journal.OwnedEntry(req.Context(), user.ID, entryID)
		if err != nil {
			h.fail(res, req, err)
			return
		}
		h.Views.Render(res, req, http.StatusOK, views.PageRemoveEntry, views.Data{"Entry": entry, "Topic": topic})
		return
	}

	topicID, err := h.Journal.RemoveEntry(req.Context(), user.ID, entryID)
	if err != nil {
		h.fail(res, req, err)
		return
	}
	http.Redirect(res, req, topicURL(topicID), http.StatusFound)
}

func topicURL(id int64) string {
	return fmt.Sprintf("/topics/%d/", id)
}
