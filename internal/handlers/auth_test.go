package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/snapcal/apiserver/internal/services"
	"github.com/snapcal/apiserver/internal/store"
	"github.com/snapcal/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes backing the real services ---

type memUserStore struct {
	users map[string]types.User
}

func (m *memUserStore) GetByID(_ context.Context, id string) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUserStore) Create(_ context.Context, user types.User) (types.User, error) {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserStore) SetPassword(_ context.Context, id, passwordHash string) error {
	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = &passwordHash
	m.users[id] = user
	return nil
}

func (m *memUserStore) SetGoal(_ context.Context, id string, goal *string) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Goal = goal
	m.users[id] = user
	return user, nil
}

type memSessionStore struct {
	sessions map[string]types.Session
}

func (m *memSessionStore) Create(_ context.Context, session types.Session) error {
	m.sessions[session.Token] = session
	return nil
}

func (m *memSessionStore) GetUserID(_ context.Context, token string) (string, error) {
	session, ok := m.sessions[token]
	if !ok {
		return "", store.ErrNotFound
	}
	return session.UserID, nil
}

func (m *memSessionStore) Delete(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

type memFoodLogStore struct {
	logs []types.FoodLog
	seq  int64
}

func (m *memFoodLogStore) Create(_ context.Context, log types.FoodLog) (types.FoodLog, error) {
	m.seq++
	log.Seq = m.seq
	m.logs = append(m.logs, log)
	return log, nil
}

func (m *memFoodLogStore) ListByUser(_ context.Context, userID string) ([]types.FoodLog, error) {
	var out []types.FoodLog
	for _, log := range m.logs {
		if log.UserID == userID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, nil
}

// newTestRouter wires the API routes exactly like the server does, backed
// by in-memory stores.
func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	users := &memUserStore{users: map[string]types.User{}}
	sessions := &memSessionStore{sessions: map[string]types.Session{}}
	foodLogs := &memFoodLogStore{}

	authService := services.NewAuthService(users, sessions, 0)
	userService := services.NewUserService(users)
	foodLogService := services.NewFoodLogService(foodLogs, nil)

	authMiddleware := RequireAuth(authService)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		AuthRouter(r, authService)
		UserRouter(r, userService, authMiddleware)
		FoodLogRouter(r, foodLogService, authMiddleware)
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&value))
	return value
}

func register(t *testing.T, router http.Handler, email, password string) AuthResponse {
	t.Helper()
	recorder := doJSON(t, router, http.MethodPost, "/api/register", "", CredentialsRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	return decodeBody[AuthResponse](t, recorder)
}

// --- tests ---

func TestRegisterEndpoint(t *testing.T) {
	router := newTestRouter(t)

	resp := register(t, router, "A@X.com", "secret1")
	assert.Equal(t, "a@x.com", resp.User.Email)
	assert.Nil(t, resp.User.Goal)
	assert.NotEmpty(t, resp.Token)

	// The wire shape is {id, email, goal}: no password material.
	recorder := doJSON(t, router, http.MethodGet, "/api/current", resp.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var raw map[string]map[string]any
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&raw))
	user := raw["user"]
	assert.Contains(t, user, "id")
	assert.Contains(t, user, "email")
	assert.Contains(t, user, "goal")
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "password_hash")
}

func TestRegisterEndpointValidation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body CredentialsRequest
	}{
		{"missing email", CredentialsRequest{Password: "secret1"}},
		{"missing password", CredentialsRequest{Email: "a@x.com"}},
		{"short password", CredentialsRequest{Email: "a@x.com", Password: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := doJSON(t, router, http.MethodPost, "/api/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			body := decodeBody[ErrorResponse](t, recorder)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRegisterEndpointConflict(t *testing.T) {
	router := newTestRouter(t)

	register(t, router, "a@x.com", "secret1")
	recorder := doJSON(t, router, http.MethodPost, "/api/register", "", CredentialsRequest{Email: "a@x.com", Password: "other-secret"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	body := decodeBody[ErrorResponse](t, recorder)
	assert.Equal(t, "user already exists", body.Error)
}

func TestLoginEndpoint(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "a@x.com", "secret1")

	t.Run("success", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/api/login", "", CredentialsRequest{Email: "a@x.com", Password: "secret1"})
		require.Equal(t, http.StatusOK, recorder.Code)
		resp := decodeBody[AuthResponse](t, recorder)
		assert.Equal(t, "a@x.com", resp.User.Email)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/api/login", "", CredentialsRequest{Email: "a@x.com", Password: "wrong-pass"})
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		body := decodeBody[ErrorResponse](t, recorder)
		assert.Equal(t, "invalid credentials", body.Error)
	})

	t.Run("unknown email reads the same as wrong password", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/api/login", "", CredentialsRequest{Email: "nobody@x.com", Password: "secret1"})
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		body := decodeBody[ErrorResponse](t, recorder)
		assert.Equal(t, "invalid credentials", body.Error)
	})

	t.Run("missing fields", func(t *testing.T) {
		recorder := doJSON(t, router, http.MethodPost, "/api/login", "", CredentialsRequest{Email: "a@x.com"})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	router := newTestRouter(t)
	resp := register(t, router, "a@x.com", "secret1")

	recorder := doJSON(t, router, http.MethodPost, "/api/logout", resp.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, decodeBody[OKResponse](t, recorder).OK)

	// The revoked token now resolves to the anonymous state.
	recorder = doJSON(t, router, http.MethodGet, "/api/current", resp.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, decodeBody[CurrentUserResponse](t, recorder).User)

	// Logging out twice, or with no token at all, still succeeds.
	recorder = doJSON(t, router, http.MethodPost, "/api/logout", resp.Token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	recorder = doJSON(t, router, http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCurrentEndpointAnonymous(t *testing.T) {
	router := newTestRouter(t)

	for _, token := range []string{"", "not-a-real-token"} {
		recorder := doJSON(t, router, http.MethodGet, "/api/current", token, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Nil(t, decodeBody[CurrentUserResponse](t, recorder).User)
	}
}

func TestGoalEndpoint(t *testing.T) {
	router := newTestRouter(t)
	resp := register(t, router, "a@x.com", "secret1")

	recorder := doJSON(t, router, http.MethodPost, "/api/goal", resp.Token, GoalRequest{Goal: "lose_weight"})
	require.Equal(t, http.StatusOK, recorder.Code)
	updated := decodeBody[UserResponse](t, recorder)
	require.NotNil(t, updated.User.Goal)
	assert.Equal(t, "lose_weight", *updated.User.Goal)

	// Setting the same goal twice yields the same observable state.
	recorder = doJSON(t, router, http.MethodPost, "/api/goal", resp.Token, GoalRequest{Goal: "lose_weight"})
	require.Equal(t, http.StatusOK, recorder.Code)
	again := decodeBody[UserResponse](t, recorder)
	assert.Equal(t, updated.User, again.User)

	// The goal shows up on /api/current afterwards.
	recorder = doJSON(t, router, http.MethodGet, "/api/current", resp.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	current := decodeBody[CurrentUserResponse](t, recorder)
	require.NotNil(t, current.User)
	require.NotNil(t, current.User.Goal)
	assert.Equal(t, "lose_weight", *current.User.Goal)
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	router := newTestRouter(t)

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/goal", GoalRequest{Goal: "bulk"}},
		{http.MethodGet, "/api/foodlogs", nil},
		{http.MethodPost, "/api/foodlogs", FoodLogRequest{FoodName: "Apple"}},
	}
	for _, tt := range requests {
		for _, token := range []string{"", "garbage-token"} {
			recorder := doJSON(t, router, tt.method, tt.path, token, tt.body)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code, "%s %s with token %q", tt.method, tt.path, token)
			body := decodeBody[ErrorResponse](t, recorder)
			assert.Equal(t, "unauthorized", body.Error)
		}
	}
}

func TestFoodLogLifecycle(t *testing.T) {
	router := newTestRouter(t)
	resp := register(t, router, "a@x.com", "secret1")

	// A bare foodName stores zeros for every macro.
	recorder := doJSON(t, router, http.MethodPost, "/api/foodlogs", resp.Token, map[string]any{"foodName": "Apple"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	created := decodeBody[FoodLogResponse](t, recorder)
	assert.Equal(t, "Apple", created.Log.FoodName)
	assert.Zero(t, created.Log.Calories)
	assert.Zero(t, created.Log.Protein)
	assert.Zero(t, created.Log.Carbs)
	assert.Zero(t, created.Log.Fat)

	recorder = doJSON(t, router, http.MethodGet, "/api/foodlogs", resp.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	listed := decodeBody[FoodLogListResponse](t, recorder)
	require.Len(t, listed.Logs, 1)
	assert.Equal(t, "Apple", listed.Logs[0].FoodName)
}

func TestFoodLogMacroCoercion(t *testing.T) {
	router := newTestRouter(t)
	resp := register(t, router, "a@x.com", "secret1")

	recorder := doJSON(t, router, http.MethodPost, "/api/foodlogs", resp.Token, map[string]any{
		"foodName": "Oatmeal",
		"calories": "not-a-number",
		"protein":  nil,
		"carbs":    "54.5",
		"fat":      3,
	})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	created := decodeBody[FoodLogResponse](t, recorder)
	assert.Zero(t, created.Log.Calories)
	assert.Zero(t, created.Log.Protein)
	assert.Equal(t, 54.5, created.Log.Carbs)
	assert.Equal(t, 3.0, created.Log.Fat)
}

func TestFoodLogMissingName(t *testing.T) {
	router := newTestRouter(t)
	resp := register(t, router, "a@x.com", "secret1")

	recorder := doJSON(t, router, http.MethodPost, "/api/foodlogs", resp.Token, map[string]any{"calories": 100})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestFoodLogOwnershipIsolation(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice@x.com", "secret1")
	bob := register(t, router, "bob@x.com", "secret1")

	recorder := doJSON(t, router, http.MethodPost, "/api/foodlogs", alice.Token, map[string]any{"foodName": "Apple"})
	require.Equal(t, http.StatusOK, recorder.Code)

	// Bob's ledger stays empty: the acting user comes from the token, and
	// there is no way to address another user's data.
	recorder = doJSON(t, router, http.MethodGet, "/api/foodlogs", bob.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, decodeBody[FoodLogListResponse](t, recorder).Logs)

	recorder = doJSON(t, router, http.MethodGet, "/api/foodlogs", alice.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decodeBody[FoodLogListResponse](t, recorder).Logs, 1)
}

func TestFoodLogOrdering(t *testing.T) {
	router := newTestRouter(t)
	resp := register(t, router, "a@x.com", "secret1")

	for _, name := range []string{"First", "Second", "Third"} {
		recorder := doJSON(t, router, http.MethodPost, "/api/foodlogs", resp.Token, map[string]any{"foodName": name})
		require.Equal(t, http.StatusOK, recorder.Code)
		time.Sleep(time.Millisecond)
	}

	recorder := doJSON(t, router, http.MethodGet, "/api/foodlogs", resp.Token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	listed := decodeBody[FoodLogListResponse](t, recorder)
	require.Len(t, listed.Logs, 3)
	assert.Equal(t, "Third", listed.Logs[0].FoodName)
	assert.Equal(t, "Second", listed.Logs[1].FoodName)
	assert.Equal(t, "First", listed.Logs[2].FoodName)
}
