package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Totarae/LearningLog/internal/forms"
	"github.com/Totarae/LearningLog/internal/service"
	"github.com/Totarae/LearningLog/internal/views"
	"go.uber.org/zap"
)

const loginPath = "/users/login/"

// LoginURL строит адрес страницы входа с возвратом на next.
func LoginURL(next string) string {
	if next == "" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

// safeNext пропускает только локальные пути, иначе возвращает "/".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

// Register создаёт аккаунт, сразу выполняет вход и ведёт на главную.
func (h *Handler) Register(res http.ResponseWriter, req *http.Request) {
	var form forms.RegisterForm
	errs := forms.Errors{}
	if req.Method == http.MethodPost {
		var err error
		errs, err = h.Forms.Bind(req, &form)
		if err != nil {
			http.Error(res, "Bad Request", http.StatusBadRequest)
			return
		}
		if errs.Valid() {
			user, err := h.Accounts.Register(req.Context(), form.Username, form.Password)
			switch {
			case errors.Is(err, service.ErrUsernameTaken):
				errs.Add("username", "A user with that username already exists.")
			case err != nil:
				h.fail(res, req, err)
				return
			default:
				h.Auth.Login(res, user.ID)
				http.Redirect(res, req, "/", http.StatusFound)
				return
			}
		}
	}
	form.Password, form.Password2 = "", ""
	h.Views.Render(res, req, http.StatusOK, views.PageRegister, views.Data{"Form": form, "Errors": errs})
}

// Login проверяет учётные данные и возвращает на next.
func (h *Handler) Login(res http.ResponseWriter, req *http.Request) {
	var form forms.LoginForm
	errs := forms.Errors{}
	next := req.URL.Query().Get("next")
	if req.Method == http.MethodPost {
		var err error
		errs, err = h.Forms.Bind(req, &form)
		if err != nil {
			http.Error(res, "Bad Request", http.StatusBadRequest)
			return
		}
		if v := req.PostForm.Get("next"); v != "" {
			next = v
		}
		if errs.Valid() {
			user, err := h.Accounts.Authenticate(req.Context(), form.Username, form.Password)
			switch {
			case errors.Is(err, service.ErrInvalidCredentials):
				h.Logger.Info("failed login", zap.String("username", form.Username))
				errs.Add("", "Please enter a correct username and password. Note that both fields may be case-sensitive.")
			case err != nil:
				h.fail(res, req, err)
				return
			default:
				h.Auth.Login(res, user.ID)
				http.Redirect(res, req, safeNext(next), http.StatusFound)
				return
			}
		}
	}
	form.Password = ""
	h.Views.Render(res, req, http.StatusOK, views.PageLogin, views.Data{"Form": form, "Errors": errs, "Next": next})
}

// Logout сбрасывает сессию и ведёт на главную.
func (h *Handler) Logout(res http.ResponseWriter, req *http.Request) {
	h.Auth.Logout(res)
	http.Redirect(res, req, "/", http.StatusFound)
}
