package store

import "github.com/pliu/parley/internal/models"

// NewMessage carries the fields of a message to append. Attachment fields are
// populated by the external upload step; the store never touches file bytes.
type NewMessage struct {
	ChatID   string
	SenderID string
	Content  string
	FileURL  string
	FileName string
	FileType string
	ReplyTo  string
}

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	SearchUsers(query, excludeID string) ([]models.User, error)
	UpdateUserProfile(id, name, pic string) (*models.User, error)
	UpdateUserPassword(id, hash string) error
	ListUsers() ([]models.User, error)
	DeleteUser(id string) error

	// Admin operations
	CreateAdmin(admin *models.Admin) error
	GetAdminByEmail(email string) (*models.Admin, error)
	GetAdminByID(id string) (*models.Admin, error)
	SearchAdminByName(query string) (*models.Admin, error)

	// Chat operations
	FindDirectChat(userA, userB string) (*models.Chat, error)
	CreateDirectChat(userA, userB string) (*models.Chat, error)
	CreateGroupChat(name, adminID string, memberIDs []string) (*models.Chat, error)
	GroupNameExists(name, excludeChatID string) (bool, error)
	GetChat(chatID string) (*models.Chat, error)
	IsParticipant(chatID, userID string) (bool, error)
	RenameChat(chatID, name string) (*models.Chat, error)
	AddParticipant(chatID, userID string) (*models.Chat, error)
	RemoveParticipant(chatID, userID string) (*models.Chat, error)
	GetUserChats(userID string) ([]models.Chat, error)
	GetAllChats() ([]models.Chat, error)
	ListGroupsByAdmin(adminID string) ([]models.Chat, error)
	ListGroupsWithMember(userID string) ([]models.Chat, error)
	DeleteChat(chatID string) error
	BlockChat(chatID, userID string) error
	UnblockChat(chatID, userID string) error

	// Message operations
	SaveMessage(msg NewMessage) (*models.Message, error)
	GetChatMessages(chatID string) ([]models.Message, error)
	GetMessage(messageID string) (*models.Message, error)
	DeleteMessage(messageID string) error
	MarkChatRead(chatID, userID string) error
	UnreadCount(chatID, userID string) (int, error)
	UnreadCounts(userID string) ([]models.ChatUnread, error)
	ClearAllNotifications(userID string) error
}
