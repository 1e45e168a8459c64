package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/pliu/parley/internal/auth"
	"github.com/pliu/parley/internal/middleware"
	"github.com/pliu/parley/internal/models"
	"github.com/pliu/parley/internal/notify"
	"github.com/pliu/parley/internal/store/sqlstore"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	store  *sqlstore.SQLStore
	broker *notify.MemoryBroker
	auth   *AuthHandler
	chat   *ChatHandler
	msg    *MessageHandler
	admin  *AdminHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s, err := sqlstore.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	broker := notify.NewMemoryBroker()
	t.Cleanup(broker.Close)

	logger := hclog.NewNullLogger()
	return &env{
		store:  s,
		broker: broker,
		auth:   &AuthHandler{Store: s, Logger: logger},
		chat:   &ChatHandler{Store: s, Logger: logger},
		msg:    &MessageHandler{Store: s, Broker: broker, Logger: logger},
		admin:  &AdminHandler{Store: s, Logger: logger},
	}
}

func (e *env) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.MinCost)
	u := &models.User{Name: name, Email: name + "@example.com", Password: string(hash)}
	if err := e.store.CreateUser(u); err != nil {
		t.Fatalf("createUser(%s) failed: %v", name, err)
	}
	return u
}

func (e *env) createAdmin(t *testing.T, name string) *models.Admin {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("pass"), bcrypt.MinCost)
	a := &models.Admin{Name: name, Email: name + "@example.com", Password: string(hash)}
	if err := e.store.CreateAdmin(a); err != nil {
		t.Fatalf("createAdmin(%s) failed: %v", name, err)
	}
	return a
}

func userPrincipal(id string) middleware.Principal {
	return middleware.Principal{ID: id, Role: middleware.RoleUser}
}

func adminPrincipal(id string) middleware.Principal {
	return middleware.Principal{ID: id, Role: middleware.RoleAdmin}
}

// request builds an authenticated request with an optional JSON body and
// optional mux path vars.
func request(t *testing.T, method, target string, body any, p *middleware.Principal, vars map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if p != nil {
		req.AddCookie(&http.Cookie{
			Name:  middleware.CookieName,
			Value: auth.SignCookie(middleware.CookieValue(*p)),
		})
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

// do runs the handler behind RequireAuth, the way the router mounts it.
func do(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	middleware.RequireAuth(handler).ServeHTTP(rr, req)
	return rr
}

// doAdmin runs the handler behind RequireAdmin.
func doAdmin(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	middleware.RequireAdmin(handler).ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

// capture subscribes to a user's events for the duration of the test.
func (e *env) capture(t *testing.T, userID string) *[]notify.Event {
	t.Helper()
	events := &[]notify.Event{}
	unsub, err := e.broker.Subscribe(userID, func(ev notify.Event) {
		*events = append(*events, ev)
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	t.Cleanup(unsub)
	return events
}
