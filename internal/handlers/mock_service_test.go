package handlers

import (
	"context"
	"net/http"
	"sync"

	"gate_control/internal/models"
	"gate_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastGenUsername string
	lastGenPassword string
	lastParseToken  string
}

func (m *mockAuth) AddOperator(ctx context.Context, username, password string) (int, error) {
	return 0, nil
}

func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}

func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockGate struct {
	mu        sync.Mutex
	state     models.GateSessionState
	submitErr error
	submitted []models.Command
	hub       *service.Hub
}

func newMockGate() *mockGate {
	return &mockGate{hub: service.NewHub(nil)}
}

func (m *mockGate) Submit(cmd models.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, cmd)
	return nil
}

func (m *mockGate) Snapshot() models.GateSessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

func (m *mockGate) Subscribe(name string, buf int) *service.Subscription {
	return m.hub.Subscribe(name, buf)
}

type mockActivity struct {
	resp    []models.LogEntry
	err     error
	lastF   service.LogFilter
	listHit int
}

func (m *mockActivity) Append(ctx context.Context, e models.LogEntry) {}

func (m *mockActivity) Recent(ctx context.Context, n int) ([]models.LogEntry, error) {
	return m.resp, m.err
}

func (m *mockActivity) List(ctx context.Context, f service.LogFilter) ([]models.LogEntry, error) {
	m.listHit++
	m.lastF = f
	return m.resp, m.err
}

func (m *mockActivity) Degraded() bool { return false }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, nil).InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withHeaders(req *http.Request, hdr http.Header) *http.Request {
	for k, vv := range hdr {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
