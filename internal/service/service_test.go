package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/receiptsplit/internal/api"
	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/metrics"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage/blob"
	"github.com/mmynk/receiptsplit/internal/storage/sqlite"
)

const testUserHeader = "X-Test-User"

// testAuthInterceptor trusts the test user header instead of a JWT.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if userID := req.Header().Get(testUserHeader); userID != "" {
				ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
			}
			return next(ctx, req)
		}
	}
}

type testEnv struct {
	auth     *api.AuthServiceClient
	groups   *api.GroupServiceClient
	receipts *api.ReceiptServiceClient
	store    *sqlite.SQLiteStore
	images   *blob.FSStore
}

// as builds a request made by userID.
func as[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, userID)
	return req
}

// setupTestServer wires every service over a temp SQLite database and blob
// directory, and registers alice, bob, carol and dave.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	tempDir := t.TempDir()
	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		user := models.NewUser(id+"@example.com", id, "hash")
		user.ID = id
		if err := store.CreateUser(context.Background(), user); err != nil {
			t.Fatalf("failed to create user %s: %v", id, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	images, err := blob.NewFSStore(filepath.Join(tempDir, "blobs"), "http://blobs.test/blobs/", 1<<20)
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	m := metrics.New(prometheus.NewRegistry())

	interceptors := connect.WithInterceptors(testAuthInterceptor(), m.Interceptor())
	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(NewAuthService(authenticator, store, jwtManager, logger), interceptors))
	mux.Handle(api.NewGroupServiceHandler(NewGroupService(store, images, logger), interceptors))
	mux.Handle(api.NewReceiptServiceHandler(NewReceiptService(store, images, m, logger), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		auth:     api.NewAuthServiceClient(http.DefaultClient, server.URL),
		groups:   api.NewGroupServiceClient(http.DefaultClient, server.URL),
		receipts: api.NewReceiptServiceClient(http.DefaultClient, server.URL),
		store:    store,
		images:   images,
	}
}

// createGroup makes a group owned by the first member.
func (e *testEnv) createGroup(t *testing.T, owner string, others ...string) api.Group {
	t.Helper()
	resp, err := e.groups.CreateGroup(context.Background(), as(owner, &api.CreateGroupRequest{
		Name:      "Dinner Club",
		MemberIDs: others,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code = %v, want %v (err: %v)", got, want, err)
	}
}
