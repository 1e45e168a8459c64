package sqlstore

import (
	"testing"

	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/models"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	mustCreateUser(t, s, "alice")

	err := s.CreateUser(&models.User{Name: "other", Email: "alice@example.com", Password: "hash"})
	if !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestCreateUserDuplicateNameCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	mustCreateUser(t, s, "alice")

	err := s.CreateUser(&models.User{Name: "ALICE", Email: "alice2@example.com", Password: "hash"})
	if !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("expected Conflict for case-insensitive name clash, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateUser(t, s, "alice")

	got, err := s.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got id %s want %s", got.ID, created.ID)
	}

	_, err = s.GetUserByEmail("nobody@example.com")
	if !apperr.IsKind(err, apperr.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestSearchUsersExcludesSelf(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreateUser(t, s, "alice")
	mustCreateUser(t, s, "alina")
	mustCreateUser(t, s, "bob")

	users, err := s.SearchUsers("ali", alice.ID)
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].Name != "alina" {
		t.Errorf("expected only alina, got %v", users)
	}
}

func TestUpdateUserProfileKeepsUnsetFields(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreateUser(t, s, "alice")

	updated, err := s.UpdateUserProfile(alice.ID, "", "http://pic")
	if err != nil {
		t.Fatalf("UpdateUserProfile failed: %v", err)
	}
	if updated.Name != "alice" {
		t.Errorf("expected name unchanged, got %s", updated.Name)
	}
	if updated.Pic != "http://pic" {
		t.Errorf("expected pic updated, got %s", updated.Pic)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	chat, err := s.CreateDirectChat(alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CreateDirectChat failed: %v", err)
	}
	if _, err := s.SaveMessage(newMsg(chat.ID, alice.ID, "hi")); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
	if err := s.BlockChat(chat.ID, alice.ID); err != nil {
		t.Fatalf("BlockChat failed: %v", err)
	}

	if err := s.DeleteUser(alice.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if _, err := s.GetUserByID(alice.ID); !apperr.IsKind(err, apperr.NotFound) {
		t.Errorf("expected user gone, got %v", err)
	}
	isMember, _ := s.IsParticipant(chat.ID, alice.ID)
	if isMember {
		t.Error("expected membership removed")
	}
	messages, err := s.GetChatMessages(chat.ID)
	if err != nil {
		t.Fatalf("GetChatMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected authored messages deleted, got %d", len(messages))
	}
	reloaded, err := s.GetChat(chat.ID)
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if len(reloaded.BlockedBy) != 0 {
		t.Errorf("expected block marks removed, got %v", reloaded.BlockedBy)
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteUser("missing"); !apperr.IsKind(err, apperr.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestAdminLifecycle(t *testing.T) {
	s := newTestStore(t)
	admin := &models.Admin{Name: "root", Email: "root@example.com", Password: "hash"}
	if err := s.CreateAdmin(admin); err != nil {
		t.Fatalf("CreateAdmin failed: %v", err)
	}

	err := s.CreateAdmin(&models.Admin{Name: "other", Email: "root@example.com", Password: "hash"})
	if !apperr.IsKind(err, apperr.Conflict) {
		t.Errorf("expected Conflict for duplicate admin email, got %v", err)
	}

	found, err := s.SearchAdminByName("roo")
	if err != nil {
		t.Fatalf("SearchAdminByName failed: %v", err)
	}
	if found.ID != admin.ID {
		t.Errorf("got %s want %s", found.ID, admin.ID)
	}

	byID, err := s.GetAdminByID(admin.ID)
	if err != nil {
		t.Fatalf("GetAdminByID failed: %v", err)
	}
	if byID.Email != "root@example.com" {
		t.Errorf("unexpected admin: %+v", byID)
	}
}
