package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatwave/module/user/model"
	"chatwave/module/user/service"
	"chatwave/service/queue"
	"chatwave/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOTP struct {
	code    string
	limited bool
	issued  []string
}

func (s *stubOTP) Issue(_ context.Context, email string) (string, bool, error) {
	if s.limited {
		return "", false, nil
	}
	s.issued = append(s.issued, email)
	return s.code, true, nil
}

func (s *stubOTP) Verify(_ context.Context, _ string, code string) (bool, error) {
	return code == s.code, nil
}

type stubPub struct {
	jobs []queue.MailJob
}

func (s *stubPub) Publish(_ string, v any) error {
	if job, ok := v.(queue.MailJob); ok {
		s.jobs = append(s.jobs, job)
	}
	return nil
}

type stubStore struct {
	users map[string]*model.User
}

func (s *stubStore) FindOrCreate(_ context.Context, email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	u := &model.User{ID: "u-" + email, Name: email, Email: email, CreatedAt: time.Now()}
	if s.users == nil {
		s.users = map[string]*model.User{}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *stubStore) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, service.ErrNotFound
}

func (s *stubStore) All(_ context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubStore) UpdateName(_ context.Context, id, name string) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	u.Name = name
	return u, nil
}

func newTestRouter(otp *stubOTP, pub *stubPub, store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, otp, pub, security.DefaultOptions([]byte("test-secret")))
	r := gin.New()
	h.Register(r)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLoginQueuesOTPMail(t *testing.T) {
	otp := &stubOTP{code: "123456"}
	pub := &stubPub{}
	r := newTestRouter(otp, pub, &stubStore{})

	w := postJSON(t, r, "/api/v1/login", gin.H{"email": "alice@example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, pub.jobs, 1)
	assert.Equal(t, "alice@example.com", pub.jobs[0].To)
	assert.Contains(t, pub.jobs[0].Body, "123456")
}

func TestLoginRejectsBadEmail(t *testing.T) {
	r := newTestRouter(&stubOTP{code: "123456"}, &stubPub{}, &stubStore{})
	w := postJSON(t, r, "/api/v1/login", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	r := newTestRouter(&stubOTP{limited: true}, &stubPub{}, &stubStore{})
	w := postJSON(t, r, "/api/v1/login", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestVerifyIssuesToken(t *testing.T) {
	otp := &stubOTP{code: "123456"}
	store := &stubStore{}
	r := newTestRouter(otp, &stubPub{}, store)

	w := postJSON(t, r, "/api/v1/verify", gin.H{"email": "alice@example.com", "otp": "123456"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	sub, err := security.Parse(security.DefaultOptions([]byte("test-secret")), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, sub)
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	r := newTestRouter(&stubOTP{code: "123456"}, &stubPub{}, &stubStore{})
	w := postJSON(t, r, "/api/v1/verify", gin.H{"email": "alice@example.com", "otp": "999999"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyRequiresFields(t *testing.T) {
	r := newTestRouter(&stubOTP{code: "123456"}, &stubPub{}, &stubStore{})
	w := postJSON(t, r, "/api/v1/verify", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeRequiresAuth(t *testing.T) {
	r := newTestRouter(&stubOTP{}, &stubPub{}, &stubStore{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	store := &stubStore{users: map[string]*model.User{
		"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com"},
	}}
	r := newTestRouter(&stubOTP{}, &stubPub{}, store)

	token, _, err := security.Generate(security.DefaultOptions([]byte("test-secret")), "u1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var u model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Equal(t, "Alice", u.Name)
}
