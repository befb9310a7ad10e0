// Package views рендерит HTML-страницы из встроенных шаблонов.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/Totarae/LearningLog/internal/auth"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var files embed.FS

// Имена страниц.
const (
	PageIndex       = "index.html"
	PageTopics      = "topics.html"
	PageTopic       = "topic.html"
	PageNewTopic    = "new_topic.html"
	PageSuccess     = "success.html"
	PageNewEntry    = "new_entry.html"
	PageEditEntry   = "edit_entry.html"
	PageRemoveEntry = "remove_entry.html"
	PageNotFound    = "404.html"
	PageRegister    = "register.html"
	PageLogin       = "login.html"
)

var pages = []string{
	PageIndex, PageTopics, PageTopic, PageNewTopic, PageSuccess,
	PageNewEntry, PageEditEntry, PageRemoveEntry, PageNotFound, PageRegister, PageLogin,
}

// Data — данные шаблона.
type Data map[string]any

// Renderer хранит разобранные шаблоны страниц.
type Renderer struct {
	pages  map[string]*template.Template
	policy *bluemonday.Policy
	logger *zap.Logger
}

// New разбирает все шаблоны. Ошибка означает сломанный шаблон.
func New(logger *zap.Logger) (*Renderer, error) {
	rd := &Renderer{
		pages:  make(map[string]*template.Template, len(pages)),
		policy: bluemonday.UGCPolicy(),
		logger: logger,
	}
	funcs := template.FuncMap{
		"linebreaks": rd.linebreaks,
		"date":       formatDate,
	}
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(files, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		rd.pages[page] = tmpl
	}
	return rd, nil
}

// Render выполняет шаблон page и пишет ответ со статусом status.
// Текущий пользователь доступен в шаблоне как .User.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data Data) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown template", zap.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = Data{}
	}
	data["User"] = auth.ForContext(r.Context())
	data["Path"] = r.URL.Path

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// linebreaks превращает текст записи в абзацы: пустая строка разделяет
// абзацы, одиночный перевод строки становится <br/>.
func (rd *Renderer) linebreaks(text string) template.HTML {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = template.HTMLEscapeString(lines[i])
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br/>"))
		b.WriteString("</p>")
	}
	return template.HTML(rd.policy.Sanitize(b.String()))
}

func formatDate(t time.Time) string {
	return t.Format("Jan 02, 2006 15:04")
}
