package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pliu/parley/internal/models"
)

func TestAdminRegisterAndLogin(t *testing.T) {
	e := newEnv(t)

	req := request(t, http.MethodPost, "/api/admin/register", map[string]string{
		"name": "operator", "email": "op@example.com", "password": "secret",
	}, nil, nil)
	rr := httptest.NewRecorder()
	e.admin.Register(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	req = request(t, http.MethodPost, "/api/admin/login", Credentials{
		Email: "op@example.com", Password: "secret",
	}, nil, nil)
	rr = httptest.NewRecorder()
	e.admin.Login(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rr.Code)
	}
	if len(rr.Result().Cookies()) != 1 {
		t.Error("expected a session cookie on admin login")
	}

	req = request(t, http.MethodPost, "/api/admin/login", Credentials{
		Email: "op@example.com", Password: "wrong",
	}, nil, nil)
	rr = httptest.NewRecorder()
	e.admin.Login(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rr.Code)
	}
}

func TestAdminRoutesRejectUsers(t *testing.T) {
	e := newEnv(t)
	alice := e.createUser(t, "alice")

	p := userPrincipal(alice.ID)
	req := request(t, http.MethodGet, "/api/admin/users", nil, &p, nil)
	if rr := doAdmin(e.admin.ListUsers, req); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user principal, got %d", rr.Code)
	}
}

func TestAdminListUsersAndChats(t *testing.T) {
	e := newEnv(t)
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	op := e.createAdmin(t, "operator")
	e.accessChat(t, userPrincipal(alice.ID), bob.ID)

	p := adminPrincipal(op.ID)

	req := request(t, http.MethodGet, "/api/admin/users", nil, &p, nil)
	rr := doAdmin(e.admin.ListUsers, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list users: expected 200, got %d", rr.Code)
	}
	if users := decode[[]models.User](t, rr); len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	req = request(t, http.MethodGet, "/api/admin/chats", nil, &p, nil)
	rr = doAdmin(e.admin.ListChats, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list chats: expected 200, got %d", rr.Code)
	}
	if chats := decode[[]models.Chat](t, rr); len(chats) != 1 {
		t.Errorf("expected 1 chat, got %d", len(chats))
	}
}

func TestAdminChatMessagesWithoutMembership(t *testing.T) {
	e := newEnv(t)
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	op := e.createAdmin(t, "operator")
	direct, _ := e.accessChat(t, userPrincipal(alice.ID), bob.ID)
	e.sendMessage(t, userPrincipal(alice.ID), direct.ID, "private?")

	p := adminPrincipal(op.ID)
	req := request(t, http.MethodGet, "/api/admin/chat/"+direct.ID+"/messages", nil, &p,
		map[string]string{"chatId": direct.ID})
	rr := doAdmin(e.admin.ChatMessages, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if messages := decode[[]models.Message](t, rr); len(messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(messages))
	}

	req = request(t, http.MethodGet, "/api/admin/chat/nope/messages", nil, &p,
		map[string]string{"chatId": "nope"})
	if rr := doAdmin(e.admin.ChatMessages, req); rr.Code != http.StatusNotFound {
		t.Fatalf("missing chat: expected 404, got %d", rr.Code)
	}
}

func TestAdminDeleteUser(t *testing.T) {
	e := newEnv(t)
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	op := e.createAdmin(t, "operator")
	direct, _ := e.accessChat(t, userPrincipal(alice.ID), bob.ID)
	e.sendMessage(t, userPrincipal(alice.ID), direct.ID, "soon gone")

	p := adminPrincipal(op.ID)
	req := request(t, http.MethodDelete, "/api/admin/user/"+alice.ID, nil, &p,
		map[string]string{"userId": alice.ID})
	rr := doAdmin(e.admin.DeleteUser, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if _, err := e.store.GetUserByID(alice.ID); err == nil {
		t.Error("user should be gone")
	}
	messages, err := e.store.GetChatMessages(direct.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 0 {
		t.Errorf("authored messages should be gone, got %d", len(messages))
	}
}

func TestAdminGroups(t *testing.T) {
	e := newEnv(t)
	alice := e.createUser(t, "alice")
	bob := e.createUser(t, "bob")
	op := e.createAdmin(t, "operator")

	// Group creation goes through the shared chat handler with the admin as
	// the acting principal.
	p := adminPrincipal(op.ID)
	group, code := e.createGroup(t, p, "announcements", []string{alice.ID, bob.ID})
	if code != http.StatusOK {
		t.Fatalf("admin group create failed with %d", code)
	}
	if group.GroupAdmin == nil || group.GroupAdmin.ID != op.ID {
		t.Error("admin should be the group admin of their group")
	}

	req := request(t, http.MethodGet, "/api/admin/groups/created", nil, &p, nil)
	rr := doAdmin(e.admin.GroupsCreated, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("groups created: expected 200, got %d", rr.Code)
	}
	if chats := decode[[]models.Chat](t, rr); len(chats) != 1 || chats[0].ID != group.ID {
		t.Errorf("expected the one created group, got %+v", chats)
	}

	req = request(t, http.MethodGet, "/api/admin/groups/member", nil, &p, nil)
	rr = doAdmin(e.admin.GroupsMember, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("groups member: expected 200, got %d", rr.Code)
	}
	if chats := decode[[]models.Chat](t, rr); len(chats) != 1 {
		t.Errorf("expected membership in 1 group, got %d", len(chats))
	}
}
