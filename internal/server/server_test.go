package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accountdomain "github.com/voxlane/voxlane/internal/account/domain"
	assistantdomain "github.com/voxlane/voxlane/internal/assistant/domain"
	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/providers/identity"
	"go.uber.org/zap"
)

type identityStub struct {
	principal *identity.Identity
	err       error
}

func (s *identityStub) ResolveToken(ctx context.Context, token string) (*identity.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.principal, nil
}

type accountStub struct {
	account *accountdomain.Account
	err     error
	deleted int
}

func (s *accountStub) GetOrCreateByExternalID(ctx context.Context, externalID, email string) (*accountdomain.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.account, nil
}

func (s *accountStub) GetByID(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	return s.account, s.err
}

func (s *accountStub) Delete(ctx context.Context, id snowflake.ID) error {
	s.deleted++
	return s.err
}

type assistantStub struct {
	created   *assistantdomain.Assistant
	createErr error
	getErr    error
}

func (s *assistantStub) Create(ctx context.Context, req assistantdomain.CreateRequest) (*assistantdomain.Assistant, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *assistantStub) List(ctx context.Context, accountID snowflake.ID) ([]assistantdomain.Assistant, error) {
	return nil, nil
}

func (s *assistantStub) GetByID(ctx context.Context, accountID, id snowflake.ID) (*assistantdomain.Assistant, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.created, nil
}

func (s *assistantStub) Update(ctx context.Context, req assistantdomain.UpdateRequest) (*assistantdomain.Assistant, error) {
	return s.created, nil
}

func (s *assistantStub) Delete(ctx context.Context, accountID, id snowflake.ID) error {
	return nil
}

func TestCreateAssistantAtLimitLooksLikeSuccess(t *testing.T) {
	srv := newTestServer(t, liveAccount(t), &assistantStub{createErr: assistantdomain.ErrLimitReached})

	w := doRequest(srv, http.MethodPost, "/api/assistants",
		`{"name":"Support Bot","model":"gpt-4o"}`, "Bearer good-token")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 at limit, got %d", w.Code)
	}
	body := strings.TrimSpace(w.Body.String())
	if body != `{"success":true,"data":null}` {
		t.Fatalf("limit must be masked as an empty success, got %s", body)
	}
}

func TestCreateAssistantSuccessEnvelope(t *testing.T) {
	node := mustNode(t)
	created := &assistantdomain.Assistant{ID: node.Generate(), Name: "Support Bot", Model: "gpt-4o"}
	srv := newTestServer(t, liveAccount(t), &assistantStub{created: created})

	w := doRequest(srv, http.MethodPost, "/api/assistants",
		`{"name":"Support Bot","model":"gpt-4o"}`, "Bearer good-token")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"success":true`) || !strings.Contains(body, `"Support Bot"`) {
		t.Fatalf("unexpected envelope: %s", body)
	}
}

func TestExpiredDemoIndistinguishableFromMissingToken(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	account := liveAccount(t)
	account.IsDemo = true
	account.DemoExpiresAt = &past
	srv := newTestServer(t, account, &assistantStub{})

	missing := doRequest(srv, http.MethodGet, "/api/assistants", "", "")
	expired := doRequest(srv, http.MethodGet, "/api/assistants", "", "Bearer good-token")

	if missing.Code != http.StatusUnauthorized || expired.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", missing.Code, expired.Code)
	}
	if missing.Body.String() != expired.Body.String() {
		t.Fatalf("expired demo must be byte-identical to missing credential:\n%s\nvs\n%s",
			missing.Body.String(), expired.Body.String())
	}
}

func TestInvalidTokenReturns401(t *testing.T) {
	srv := newTestServerWithIdentity(t,
		&identityStub{err: identity.ErrTokenInvalid},
		&accountStub{account: liveAccount(t)},
		&assistantStub{},
	)

	w := doRequest(srv, http.MethodGet, "/api/assistants", "", "Bearer bad-token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAssistantNotFoundMapsTo404(t *testing.T) {
	srv := newTestServer(t, liveAccount(t), &assistantStub{getErr: assistantdomain.ErrNotFound})

	w := doRequest(srv, http.MethodGet, "/api/assistants/123456789", "", "Bearer good-token")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("error envelope must carry success:false, got %s", w.Body.String())
	}
}

func TestMalformedPayloadReturns400(t *testing.T) {
	srv := newTestServer(t, liveAccount(t), &assistantStub{})

	w := doRequest(srv, http.MethodPost, "/api/assistants", `{"model":"gpt-4o"}`, "Bearer good-token")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", w.Code)
	}
}

func TestDeleteAccount(t *testing.T) {
	account := liveAccount(t)
	accounts := &accountStub{account: account}
	srv := newTestServerWithIdentity(t,
		&identityStub{principal: &identity.Identity{Subject: account.ExternalID}},
		accounts,
		&assistantStub{},
	)

	w := doRequest(srv, http.MethodDelete, "/api/account", "", "Bearer good-token")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if accounts.deleted != 1 {
		t.Fatalf("expected 1 delete call, got %d", accounts.deleted)
	}
}

func liveAccount(t *testing.T) *accountdomain.Account {
	t.Helper()
	node := mustNode(t)
	return &accountdomain.Account{
		ID:         node.Generate(),
		ExternalID: "sub-123",
		Plan:       "free",
	}
}

func newTestServer(t *testing.T, account *accountdomain.Account, assistants assistantdomain.Service) *Server {
	t.Helper()
	return newTestServerWithIdentity(t,
		&identityStub{principal: &identity.Identity{Subject: account.ExternalID}},
		&accountStub{account: account},
		assistants,
	)
}

func newTestServerWithIdentity(t *testing.T, resolver identity.Resolver, accounts accountdomain.Service, assistants assistantdomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := NewEngine(config.Config{Environment: "test"}, zap.NewNop())
	return NewServer(ServerParams{
		Gin:          engine,
		Cfg:          config.Config{Environment: "test"},
		GenID:        mustNode(t),
		Identity:     resolver,
		AccountSvc:   accounts,
		AssistantSvc: assistants,
	})
}

func doRequest(srv *Server, method, path, body, authorization string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}
