// Package memstore keeps notifications, messages and users in process memory.
// It backs the tests and the STORE_DRIVER=memory mode.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"freelancehub/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu            sync.RWMutex
	notifications map[string]*common.Notification
	messages      map[string]*storedMessage
	users         map[string]*common.User
	seq           int64

	// FailInsertAfter makes CreateMany store only the first n records of a batch when >= 0.
	FailInsertAfter int
}

type storedMessage struct {
	msg *common.Message
	seq int64
}

func New() *Store {
	return &Store{
		notifications:   make(map[string]*common.Notification),
		messages:        make(map[string]*storedMessage),
		users:           make(map[string]*common.User),
		FailInsertAfter: -1,
	}
}

// Notifications returns the notification repository view of s.
func (s *Store) Notifications() *NotificationStore { return &NotificationStore{s} }

// Messages returns the message repository view of s.
func (s *Store) Messages() *MessageStore { return &MessageStore{s} }

// Users returns the user directory view of s.
func (s *Store) Users() *UserDirectory { return &UserDirectory{s} }

// PutUser adds or replaces a user.
func (s *Store) PutUser(u common.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.users[u.ID] = &cp
}

// ParseUsers reads comma separated "id[:username[:role]]" entries. The username
// defaults to the id and the role to user; a "!" after the id marks the user blocked.
func ParseUsers(spec string) ([]common.User, error) {
	var users []common.User
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) > 3 {
			return nil, common.Validationf("seed user %q has too many fields", entry)
		}

		u := common.User{ID: strings.TrimSpace(parts[0]), Role: common.RoleUser}
		if strings.HasSuffix(u.ID, "!") {
			u.ID = strings.TrimSuffix(u.ID, "!")
			u.IsBlocked = true
		}
		if u.ID == "" {
			return nil, common.Validationf("seed user %q has no id", entry)
		}
		u.Username = u.ID
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			u.Username = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			switch role := common.Role(strings.ToLower(strings.TrimSpace(parts[2]))); role {
			case common.RoleUser, common.RoleAgent, common.RoleAdmin, common.RoleService:
				u.Role = role
			default:
				return nil, common.Validationf("seed user %q has unknown role %q", entry, parts[2])
			}
		}
		users = append(users, u)
	}
	return users, nil
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

type NotificationStore struct{ s *Store }

func (n *NotificationStore) Create(ctx context.Context, notification *common.Notification) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	if notification.ID == "" {
		notification.ID = newID()
	}
	cp := *notification
	n.s.notifications[cp.ID] = &cp
	return nil
}

func (n *NotificationStore) CreateMany(ctx context.Context, notifications []*common.Notification) (int, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	stored := 0
	for _, notification := range notifications {
		if n.s.FailInsertAfter >= 0 && stored >= n.s.FailInsertAfter {
			break
		}
		if notification.ID == "" {
			notification.ID = newID()
		}
		cp := *notification
		n.s.notifications[cp.ID] = &cp
		stored++
	}
	return stored, nil
}

func (n *NotificationStore) ByID(ctx context.Context, id string) (*common.Notification, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	found, ok := n.s.notifications[id]
	if !ok {
		return nil, common.NotFoundf("notification %s", id)
	}
	cp := *found
	return &cp, nil
}

func (n *NotificationStore) ByRecipient(ctx context.Context, recipient string, filter common.NotificationFilter, page common.Page) ([]*common.Notification, int64, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	var matched []*common.Notification
	for _, notification := range n.s.notifications {
		if notification.Recipient != recipient {
			continue
		}
		if filter.ReadState != "" && notification.ReadState != filter.ReadState {
			continue
		}
		cp := *notification
		matched = append(matched, &cp)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, page), int64(len(matched)), nil
}

func (n *NotificationStore) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	var count int64
	for _, notification := range n.s.notifications {
		if notification.Recipient == recipient && notification.ReadState == common.Unread {
			count++
		}
	}
	return count, nil
}

func (n *NotificationStore) SetReadState(ctx context.Context, id string, state common.ReadState, at time.Time) (*common.Notification, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	found, ok := n.s.notifications[id]
	if !ok {
		return nil, common.NotFoundf("notification %s", id)
	}
	found.ReadState = state
	found.UpdatedAt = at
	cp := *found
	return &cp, nil
}

func (n *NotificationStore) MarkAllRead(ctx context.Context, recipient string, at time.Time) (int64, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	var changed int64
	for _, notification := range n.s.notifications {
		if notification.Recipient == recipient && notification.ReadState == common.Unread {
			notification.ReadState = common.Read
			notification.UpdatedAt = at
			changed++
		}
	}
	return changed, nil
}

func (n *NotificationStore) Delete(ctx context.Context, id string) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	if _, ok := n.s.notifications[id]; !ok {
		return common.NotFoundf("notification %s", id)
	}
	delete(n.s.notifications, id)
	return nil
}

func (n *NotificationStore) DeleteByRecipient(ctx context.Context, recipient string) (int64, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	var deleted int64
	for id, notification := range n.s.notifications {
		if notification.Recipient == recipient {
			delete(n.s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

type MessageStore struct{ s *Store }

func (m *MessageStore) Create(ctx context.Context, message *common.Message) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if message.ID == "" {
		message.ID = newID()
	}
	m.s.seq++
	cp := *message
	m.s.messages[cp.ID] = &storedMessage{msg: &cp, seq: m.s.seq}
	return nil
}

func (m *MessageStore) ByID(ctx context.Context, id string) (*common.Message, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	found, ok := m.s.messages[id]
	if !ok {
		return nil, common.NotFoundf("message %s", id)
	}
	cp := *found.msg
	return &cp, nil
}

// newestFirst orders by CreatedAt descending, then by insertion order descending.
func newestFirst(items []*storedMessage) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].msg.CreatedAt.Equal(items[j].msg.CreatedAt) {
			return items[i].seq > items[j].seq
		}
		return items[i].msg.CreatedAt.After(items[j].msg.CreatedAt)
	})
}

func (m *MessageStore) ByConversation(ctx context.Context, conversationID, participant string, page common.Page) ([]*common.Message, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var matched []*storedMessage
	for _, stored := range m.s.messages {
		if stored.msg.ConversationID == conversationID && stored.msg.IsParticipant(participant) {
			matched = append(matched, stored)
		}
	}
	newestFirst(matched)

	out := make([]*common.Message, 0, len(matched))
	for _, stored := range matched {
		cp := *stored.msg
		out = append(out, &cp)
	}
	return paginate(out, page), int64(len(out)), nil
}

func (m *MessageStore) Conversations(ctx context.Context, participant string, page common.Page) ([]*common.ConversationSummary, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var involved []*storedMessage
	for _, stored := range m.s.messages {
		if stored.msg.IsParticipant(participant) {
			involved = append(involved, stored)
		}
	}
	newestFirst(involved)

	seen := make(map[string]bool)
	var summaries []*common.ConversationSummary
	for _, stored := range involved {
		if seen[stored.msg.ConversationID] {
			continue
		}
		seen[stored.msg.ConversationID] = true
		summaries = append(summaries, &common.ConversationSummary{
			ConversationID: stored.msg.ConversationID,
			LastMessage:    stored.msg.Content,
			Sender:         stored.msg.Sender,
			Recipient:      stored.msg.Recipient,
			DeliveryState:  stored.msg.DeliveryState,
			CreatedAt:      stored.msg.CreatedAt,
		})
	}
	return paginate(summaries, page), int64(len(summaries)), nil
}

func (m *MessageStore) AdvanceDelivery(ctx context.Context, ids []string, recipient string, from []common.DeliveryState, next common.DeliveryState) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var changed []string
	for _, id := range ids {
		stored, ok := m.s.messages[id]
		if !ok || stored.msg.Recipient != recipient {
			continue
		}
		for _, state := range from {
			if stored.msg.DeliveryState == state {
				stored.msg.DeliveryState = next
				changed = append(changed, id)
				break
			}
		}
	}
	return changed, nil
}

func (m *MessageStore) Delete(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.messages[id]; !ok {
		return common.NotFoundf("message %s", id)
	}
	delete(m.s.messages, id)
	return nil
}

type UserDirectory struct{ s *Store }

func (u *UserDirectory) ByID(ctx context.Context, id string) (*common.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	found, ok := u.s.users[id]
	if !ok {
		return nil, common.NotFoundf("user %s", id)
	}
	cp := *found
	return &cp, nil
}

func (u *UserDirectory) IDs(ctx context.Context, q common.AudienceQuery) ([]string, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	var ids []string
	for _, user := range u.s.users {
		if common.MatchesAudience(user, q) {
			ids = append(ids, user.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func paginate[T any](items []T, page common.Page) []T {
	if page.Size <= 0 {
		return items
	}
	start := page.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) || end < start {
		end = len(items)
	}
	return items[start:end]
}
