package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Totarae/LearningLog/internal/auth"
	"github.com/Totarae/LearningLog/internal/handlers"
	"github.com/Totarae/LearningLog/internal/middleware"
	"github.com/Totarae/LearningLog/internal/model"
	"github.com/Totarae/LearningLog/internal/router"
	"github.com/Totarae/LearningLog/internal/service"
	"github.com/Totarae/LearningLog/internal/storage"
	"github.com/Totarae/LearningLog/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testApp struct {
	store    *storage.Store
	auth     *auth.Auth
	accounts *service.AccountService
	journal  *service.JournalService
	server   http.Handler
}

func newTestApp(t testing.TB) *testApp {
	t.Helper()
	logger := zap.NewNop()
	store := storage.NewStore("")
	journal := service.NewJournalService(store, logger)
	accounts := service.NewAccountService(store, logger)
	a := auth.New("test-secret")
	rd, err := views.New(logger)
	require.NoError(t, err)

	h := handlers.NewHandler(journal, accounts, a, rd, logger)
	r := router.NewRouter(h, logger, router.Options{Metrics: middleware.NewMetrics("learninglog")})
	return &testApp{store: store, auth: a, accounts: accounts, journal: journal, server: r}
}

func (app *testApp) user(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := app.accounts.Register(context.Background(), name, "correct horse")
	require.NoError(t, err)
	return u
}

func (app *testApp) cookie(u *model.User) *http.Cookie {
	return &http.Cookie{Name: app.auth.CookieName(), Value: app.auth.SignCookieValue(u.ID, time.Now().Add(time.Hour))}
}

func (app *testApp) do(method, target string, form url.Values, u *model.User) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if u != nil {
		req.AddCookie(app.cookie(u))
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func TestIndexAndNotFound(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Learning Log")
	assert.Contains(t, rec.Body.String(), "/users/register/")

	rec = app.do(http.MethodGet, "/no/such/page/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestPing(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodGet, "/ping", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/topics/", "/topics/1/", "/new_topic/", "/success/", "/new_entry/1/", "/edit_entry/1/"} {
		rec := app.do(http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusFound, rec.Code, target)
		assert.Equal(t, "/users/login/?next="+url.QueryEscape(target), rec.Header().Get("Location"), target)
	}
}

func TestTopicLifecycle(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")

	rec := app.do(http.MethodGet, "/topics/", nil, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No topics have been added yet.")

	rec = app.do(http.MethodGet, "/new_topic/", nil, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="text"`)

	rec = app.do(http.MethodPost, "/new_topic/", url.Values{"text": {"Chess"}}, ana)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/success/", rec.Header().Get("Location"))

	rec = app.do(http.MethodGet, "/success/", nil, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Chess")

	rec = app.do(http.MethodGet, "/topics/", nil, ana)
	assert.Contains(t, rec.Body.String(), `<a href="/topics/1/">Chess</a>`)

	rec = app.do(http.MethodGet, "/topics/1/", nil, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Topic: Chess")
	assert.Contains(t, rec.Body.String(), "There are no entries for this topic yet.")
}

func TestNewTopic_Invalid(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")

	rec := app.do(http.MethodPost, "/new_topic/", url.Values{"text": {"  "}}, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")

	rec = app.do(http.MethodPost, "/new_topic/", url.Values{"text": {strings.Repeat("x", 201)}}, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 200 characters")

	topics, err := app.journal.Topics(context.Background(), ana.ID)
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestSuccess_NoTopicsIsNotFound(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")

	rec := app.do(http.MethodGet, "/success/", nil, ana)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuccess_ShowsOwnLatestTopic(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")
	bob := app.user(t, "bob")
	ctx := context.Background()

	_, err := app.journal.CreateTopic(ctx, ana.ID, "Chess")
	require.NoError(t, err)
	_, err = app.journal.CreateTopic(ctx, bob.ID, "Rock Climbing")
	require.NoError(t, err)

	rec := app.do(http.MethodGet, "/success/", nil, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Chess")
	assert.NotContains(t, rec.Body.String(), "Rock Climbing")
}

func TestForeignAndInvalidIDsAreNotFound(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")
	bob := app.user(t, "bob")
	ctx := context.Background()

	topic, err := app.journal.CreateTopic(ctx, ana.ID, "Chess")
	require.NoError(t, err)
	entry, err := app.journal.CreateEntry(ctx, ana.ID, topic.ID, "Opening theory")
	require.NoError(t, err)

	targets := []string{
		fmt.Sprintf("/topics/%d/", topic.ID),
		fmt.Sprintf("/new_entry/%d/", topic.ID),
		fmt.Sprintf("/edit_entry/%d/", entry.ID),
		"/topics/999/",
		"/topics/abc/",
		"/edit_entry/0/",
	}
	for _, target := range targets {
		rec := app.do(http.MethodGet, target, nil, bob)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	rec := app.do(http.MethodPost, fmt.Sprintf("/remove_entry/%d/", entry.ID), url.Values{}, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodPost, fmt.Sprintf("/edit_entry/%d/", entry.ID), url.Values{"text": {"hijacked"}}, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	got, _, err := app.journal.OwnedEntry(ctx, ana.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Opening theory", got.Text)
}

func TestEntryLifecycle(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")
	ctx := context.Background()

	topic, err := app.journal.CreateTopic(ctx, ana.ID, "Chess")
	require.NoError(t, err)
	topicURL := fmt.Sprintf("/topics/%d/", topic.ID)

	rec := app.do(http.MethodGet, fmt.Sprintf("/new_entry/%d/", topic.ID), nil, ana)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodPost, fmt.Sprintf("/new_entry/%d/", topic.ID), url.Values{"text": {""}}, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")

	rec = app.do(http.MethodPost, fmt.Sprintf("/new_entry/%d/", topic.ID),
		url.Values{"text": {"The opening\nmatters.\n\n<script>x</script>"}}, ana)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, topicURL, rec.Header().Get("Location"))

	_, entries, err := app.journal.Topic(ctx, ana.ID, topic.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entryID := entries[0].ID

	rec = app.do(http.MethodGet, topicURL, nil, ana)
	body := rec.Body.String()
	assert.Contains(t, body, "The opening")
	assert.NotContains(t, body, "<script>")

	rec = app.do(http.MethodGet, fmt.Sprintf("/edit_entry/%d/", entryID), nil, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The opening")

	rec = app.do(http.MethodPost, fmt.Sprintf("/edit_entry/%d/", entryID), url.Values{"text": {"Endgames first."}}, ana)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, topicURL, rec.Header().Get("Location"))

	entry, _, err := app.journal.OwnedEntry(ctx, ana.ID, entryID)
	require.NoError(t, err)
	assert.Equal(t, "Endgames first.", entry.Text)
	assert.Equal(t, entries[0].DateAdded, entry.DateAdded)

	rec = app.do(http.MethodPost, fmt.Sprintf("/remove_entry/%d/", entryID), url.Values{}, ana)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, topicURL, rec.Header().Get("Location"))

	_, _, err = app.journal.OwnedEntry(ctx, ana.ID, entryID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	rec = app.do(http.MethodPost, fmt.Sprintf("/remove_entry/%d/", entryID), url.Values{}, ana)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveEntry_GetOnlyConfirms(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")
	bob := app.user(t, "bob")
	ctx := context.Background()

	topic, err := app.journal.CreateTopic(ctx, ana.ID, "Chess")
	require.NoError(t, err)
	entry, err := app.journal.CreateEntry(ctx, ana.ID, topic.ID, "Opening theory")
	require.NoError(t, err)
	target := fmt.Sprintf("/remove_entry/%d/", entry.ID)

	rec := app.do(http.MethodGet, target, nil, ana)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form action="`+target+`" method="post">`)
	assert.Contains(t, rec.Body.String(), "Opening theory")

	rec = app.do(http.MethodGet, target, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, _, err = app.journal.OwnedEntry(ctx, ana.ID, entry.ID)
	assert.NoError(t, err)
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/users/register/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodPost, "/users/register/", url.Values{
		"username": {"ana"}, "password1": {"correct horse"}, "password2": {"correct horse"},
	}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, app.auth.CookieName(), cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/topics/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello, ana.")

	rec = app.do(http.MethodPost, "/users/register/", url.Values{
		"username": {"ana"}, "password1": {"another one"}, "password2": {"another one"},
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A user with that username already exists.")
	assert.Empty(t, rec.Result().Cookies())
}

func TestRegister_PasswordTooLong(t *testing.T) {
	app := newTestApp(t)

	long := strings.Repeat("a", 100)
	rec := app.do(http.MethodPost, "/users/register/", url.Values{
		"username": {"ana"}, "password1": {long}, "password2": {long},
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 72 bytes")
	assert.Empty(t, rec.Result().Cookies())

	_, err := app.accounts.Authenticate(context.Background(), "ana", long)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "ana")

	rec := app.do(http.MethodGet, "/users/login/?next=/topics/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="/topics/"`)

	rec = app.do(http.MethodPost, "/users/login/", url.Values{"username": {"ana"}, "password": {"wrong password"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a correct username and password.")
	assert.Empty(t, rec.Result().Cookies())

	rec = app.do(http.MethodPost, "/users/login/", url.Values{"username": {"nobody"}, "password": {"correct horse"}}, nil)
	assert.Contains(t, rec.Body.String(), "Please enter a correct username and password.")

	rec = app.do(http.MethodPost, "/users/login/",
		url.Values{"username": {"ana"}, "password": {"correct horse"}, "next": {"/topics/"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/topics/", rec.Header().Get("Location"))
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestLogin_RejectsExternalNext(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "ana")

	for _, next := range []string{"//evil.example", "https://evil.example/", "/\\evil.example", "topics"} {
		rec := app.do(http.MethodPost, "/users/login/",
			url.Values{"username": {"ana"}, "password": {"correct horse"}, "next": {next}}, nil)
		require.Equal(t, http.StatusFound, rec.Code, next)
		assert.Equal(t, "/", rec.Header().Get("Location"), next)
	}
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")

	rec := app.do(http.MethodPost, "/users/logout/", url.Values{}, ana)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, app.auth.CookieName(), cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestAPI(t *testing.T) {
	app := newTestApp(t)
	ana := app.user(t, "ana")
	bob := app.user(t, "bob")
	ctx := context.Background()

	topic, err := app.journal.CreateTopic(ctx, ana.ID, "Chess")
	require.NoError(t, err)
	_, err = app.journal.CreateEntry(ctx, ana.ID, topic.ID, "Opening theory")
	require.NoError(t, err)

	rec := app.do(http.MethodGet, "/api/topics", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())

	rec = app.do(http.MethodGet, "/api/topics", nil, ana)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var topics []model.Topic
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &topics))
	require.Len(t, topics, 1)
	assert.Equal(t, "Chess", topics[0].Text)
	assert.NotContains(t, rec.Body.String(), ana.ID)

	rec = app.do(http.MethodGet, "/api/topics", nil, bob)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = app.do(http.MethodGet, fmt.Sprintf("/api/topics/%d", topic.ID), nil, ana)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.TopicResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, topic.ID, resp.Topic.ID)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "Opening theory", resp.Entries[0].Text)

	rec = app.do(http.MethodGet, fmt.Sprintf("/api/topics/%d", topic.ID), nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.do(http.MethodGet, "/", nil, nil)

	rec := app.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `learninglog_http_requests_total{method="GET",route="/",status="200"} 1`)
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/users/login/", handlers.LoginURL(""))
	assert.Equal(t, "/users/login/?next=%2Ftopics%2F", handlers.LoginURL("/topics/"))
}
