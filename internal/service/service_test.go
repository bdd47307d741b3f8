package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/splitter"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api"
)

type testServer struct {
	server *httptest.Server
	store  *sqlite.SQLiteStore
}

// setupTestServer mounts every service behind the production interceptor
// chain on a fresh SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")

	logger := slog.New(slog.DiscardHandler)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store, bcrypt.MinCost)

	opts := []connect.HandlerOption{
		api.WithCodec(),
		connect.WithInterceptors(middleware.ServerInterceptors(
			jwtManager, logger, middleware.NewMetrics(prometheus.NewRegistry()), api.PublicProcedures...,
		)...),
	}

	mux := http.NewServeMux()
	mux.Handle(NewAuthService(authenticator, jwtManager, store, logger).Handler(opts...))
	balances := settlement.New(store, logger)
	mux.Handle(NewGroupService(store, balances, logger).Handler(opts...))
	mux.Handle(NewExpenseService(splitter.New(store, logger), logger).Handler(opts...))
	mux.Handle(NewSettlementService(balances, logger).Handler(opts...))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})
	return &testServer{server: server, store: store}
}

// call invokes procedure with an optional bearer token.
func call[Req, Res any](t *testing.T, ts *testServer, token, procedure string, msg *Req) (*Res, error) {
	t.Helper()

	client := connect.NewClient[Req, Res](ts.server.Client(), ts.server.URL+procedure, api.WithCodec())
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	res, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

type testUser struct {
	ID    string
	Token string
}

func register(t *testing.T, ts *testServer, username string) testUser {
	t.Helper()

	res, err := call[api.RegisterRequest, api.RegisterResponse](t, ts, "", api.AuthServiceRegisterProcedure, &api.RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: "password123",
	})
	require.NoError(t, err, "register %s", username)
	return testUser{ID: res.User.ID, Token: res.Token}
}

func createGroup(t *testing.T, ts *testServer, owner testUser, members ...testUser) api.Group {
	t.Helper()

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	res, err := call[api.CreateGroupRequest, api.CreateGroupResponse](t, ts, owner.Token, api.GroupServiceCreateGroupProcedure, &api.CreateGroupRequest{
		Name:      "Roommates",
		MemberIDs: ids,
	})
	require.NoError(t, err)
	return res.Group
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, amount(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestRegisterAndLogin(t *testing.T) {
	ts := setupTestServer(t)

	alice := register(t, ts, "alice")
	assert.NotEmpty(t, alice.ID)
	assert.NotEmpty(t, alice.Token)

	login, err := call[api.LoginRequest, api.LoginResponse](t, ts, "", api.AuthServiceLoginProcedure, &api.LoginRequest{
		Email:    "ALICE@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, login.User.ID)

	me, err := call[api.GetCurrentUserRequest, api.GetCurrentUserResponse](t, ts, login.Token, api.AuthServiceGetCurrentUserProcedure, &api.GetCurrentUserRequest{})
	require.NoError(t, err)
	assert.Equal(t, "alice", me.User.Username)
	assert.Equal(t, "alice@example.com", me.User.Email)
}

func TestAuthErrors(t *testing.T) {
	ts := setupTestServer(t)
	register(t, ts, "alice")

	tests := []struct {
		name     string
		req      *api.RegisterRequest
		wantCode connect.Code
	}{
		{"duplicate email", &api.RegisterRequest{Email: "alice@example.com", Username: "alice2", Password: "password123"}, connect.CodeAlreadyExists},
		{"weak password", &api.RegisterRequest{Email: "bob@example.com", Username: "bob", Password: "short"}, connect.CodeInvalidArgument},
		{"bad email", &api.RegisterRequest{Email: "not-an-email", Username: "bob", Password: "password123"}, connect.CodeInvalidArgument},
		{"missing username", &api.RegisterRequest{Email: "bob@example.com", Password: "password123"}, connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call[api.RegisterRequest, api.RegisterResponse](t, ts, "", api.AuthServiceRegisterProcedure, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, connect.CodeOf(err))
		})
	}

	_, err := call[api.LoginRequest, api.LoginResponse](t, ts, "", api.AuthServiceLoginProcedure, &api.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = call[api.GetCurrentUserRequest, api.GetCurrentUserResponse](t, ts, "", api.AuthServiceGetCurrentUserProcedure, &api.GetCurrentUserRequest{})
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = call[api.GetCurrentUserRequest, api.GetCurrentUserResponse](t, ts, "garbage", api.AuthServiceGetCurrentUserProcedure, &api.GetCurrentUserRequest{})
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}
