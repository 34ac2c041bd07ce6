package handlers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seiflawfirm/site/libs/auth"
	"github.com/seiflawfirm/site/libs/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlogListHidesDraftsFromVisitors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/blog?category=business-law&limit=5&page=2", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, env.blog.lastFilter.IncludeDrafts)
	assert.Equal(t, "business-law", env.blog.lastFilter.Category)
	assert.Equal(t, 5, env.blog.lastFilter.Limit)
	assert.Equal(t, 2, env.blog.lastFilter.Page)
	assert.NotContains(t, rr.Body.String(), "Work in progress")

	rr = env.do(t, http.MethodGet, "/api/blog", "", env.token(t))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.blog.lastFilter.IncludeDrafts)
	assert.Equal(t, 10, env.blog.lastFilter.Limit)
	assert.Contains(t, rr.Body.String(), "Work in progress")
}

func TestBlogGetBySlug(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/blog/hello", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"post":`)

	rr = env.do(t, http.MethodGet, "/api/blog/wip", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Blog post not found"}`, rr.Body.String())
}

func TestBlogMutations(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t)
	post := `{"title":"T","slug":"t","excerpt":"e","content":"c","category":"Business Law"}`

	rr := env.do(t, http.MethodPost, "/api/blog", post, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/blog", post, tok)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Blog post created successfully","id":"p-new"}`, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/api/blog", `{"title":"T","slug":"t","excerpt":"e","content":"c","category":"Cooking"}`, tok)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid category","field":"category"}`, rr.Body.String())

	rr = env.do(t, http.MethodPut, "/api/blog/hello", post, tok)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Blog post updated successfully")

	rr = env.do(t, http.MethodDelete, "/api/blog/hello", "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/blog/hello", "", tok)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCoverUploadDisabledWithoutStorage(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cover.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/blog/covers", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: env.token(t)})
	rr := serve(env, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestContactForm(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/contact", `{"email":"jo@example.com","message":"hi"}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Missing required fields","field":"firstName"}`, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/api/contact", `{"firstName":"Jo","email":"not-an-email","message":"hi"}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"email"`)

	rr = env.do(t, http.MethodPost, "/api/contact",
		`{"firstName":"Jo","lastName":"Smith","email":"jo@example.com","phone":"555","subject":"Lease","message":"Please call","service":"Property Law"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Email sent successfully"}`, rr.Body.String())
	require.Len(t, env.sender.sent, 1)
	msg := env.sender.sent[0]
	assert.Equal(t, "office@seiflawfirm.com", msg.To)
	assert.Equal(t, "jo@example.com", msg.ReplyTo)
	assert.Equal(t, "New Contact Form Submission from Jo Smith", msg.Subject)
	assert.Contains(t, msg.Text, "Service: Property Law")
	assert.Contains(t, msg.Text, "Please call")
}

func TestContactFormDeliveryFailure(t *testing.T) {
	for _, sendErr := range []error{email.ErrDisabled, errors.New("smtp: 421")} {
		env := newTestEnv(t)
		env.sender.err = sendErr
		rr := env.do(t, http.MethodPost, "/api/contact", `{"firstName":"Jo","email":"jo@example.com","message":"hi"}`, "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"Failed to send email"}`, rr.Body.String())
	}
}

func TestLoginIssuesSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"wrong-password"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = env.do(t, http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"correct-horse"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = env.do(t, http.MethodPost, "/api/auth/login", `{"username":"admin"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "a-1", env.admins.lastLogin)

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	claims, err := env.issuer.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	me := serve(env, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.JSONEq(t, `{"admin":{"id":"a-1","username":"admin","role":"admin"}}`, me.Body.String())

	out := env.do(t, http.MethodPost, "/api/auth/logout", "", "")
	require.Equal(t, http.StatusOK, out.Code)
	assert.Contains(t, out.Header().Get("Set-Cookie"), "Max-Age=0")
}
