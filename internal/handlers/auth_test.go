package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/resumedrop/apiserver/internal/services"
	"github.com/resumedrop/apiserver/internal/store"
	"github.com/resumedrop/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type memUserRepo struct {
	nextID int
	users  map[string]types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: map[string]types.User{}}
}

func (r *memUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	u, ok := r.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.Username]; ok {
		return types.User{}, store.ErrDuplicate
	}
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.nextID++
	r.users[user.Username] = user
	return user, nil
}

func newAuthTestRouter(repo *memUserRepo) *chi.Mux {
	router := chi.NewRouter()
	AuthRouter(router, services.NewUserService(repo), testSecret)
	return router
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterThenLogin(t *testing.T) {
	router := newAuthTestRouter(newMemUserRepo())

	rec := postJSON(t, router, "/register", RegisterRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.Username)
	assert.NotZero(t, created.ID)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = postJSON(t, router, "/login", LoginRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var auth AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	assert.NotEmpty(t, auth.Token)

	userID, err := parseTokenSubject(auth.Token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, created.ID, userID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newMemUserRepo()
	router := newAuthTestRouter(repo)

	rec := postJSON(t, router, "/register", RegisterRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/register", RegisterRequest{Username: "alice", Password: "other-pass"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, repo.users, 1)
}

func TestRegisterValidation(t *testing.T) {
	router := newAuthTestRouter(newMemUserRepo())

	rec := postJSON(t, router, "/register", RegisterRequest{Username: "", Password: "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/register", RegisterRequest{Username: "bob", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	router := newAuthTestRouter(newMemUserRepo())

	rec := postJSON(t, router, "/register", RegisterRequest{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPass := postJSON(t, router, "/login", LoginRequest{Username: "alice", Password: "wrong"})
	unknownUser := postJSON(t, router, "/login", LoginRequest{Username: "nobody", Password: "secret1"})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPass.Body.String(), unknownUser.Body.String())
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := issueToken(42, "alice", []byte(testSecret), time.Hour)
	require.NoError(t, err)

	userID, err := parseTokenSubject(token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := issueToken(42, "alice", []byte(testSecret), -time.Second)
	require.NoError(t, err)

	_, err = parseTokenSubject(token, []byte(testSecret))
	assert.Error(t, err)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := issueToken(42, "alice", []byte(testSecret), time.Hour)
	require.NoError(t, err)

	_, err = parseTokenSubject(token, []byte("other-secret"))
	assert.Error(t, err)
}

func TestParseTokenMalformed(t *testing.T) {
	_, err := parseTokenSubject("not.a.jwt", []byte(testSecret))
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	protected := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		require.NoError(t, err)
		writeJSON(w, http.StatusOK, map[string]int{"user_id": userID})
	}))

	t.Run("missing token is unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header is unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("expired token is forbidden", func(t *testing.T) {
		token, err := issueToken(1, "alice", []byte(testSecret), -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid token resolves subject", func(t *testing.T) {
		token, err := issueToken(7, "alice", []byte(testSecret), time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":7}`, rec.Body.String())
	})
}
