package common

import (
	"math"
	"time"
)

type NotificationKind string

const (
	JobPostedKind           NotificationKind = "job_posted"
	JobUpdatedKind          NotificationKind = "job_updated"
	JobDeletedKind          NotificationKind = "job_deleted"
	ApplicationReceivedKind NotificationKind = "application_received"
	ApplicationStatusKind   NotificationKind = "application_status"
	ProposalReceivedKind    NotificationKind = "proposal_received"
	ProposalStatusKind      NotificationKind = "proposal_status"
	ContractOfferedKind     NotificationKind = "contract_offered"
	ContractStatusKind      NotificationKind = "contract_status"
	MilestoneAddedKind      NotificationKind = "milestone_added"
	MilestoneUpdatedKind    NotificationKind = "milestone_updated"
	MilestoneCompletedKind  NotificationKind = "milestone_completed"
	PaymentReceivedKind     NotificationKind = "payment_received"
	PaymentCompletedKind    NotificationKind = "payment_completed"
	InvoiceReceivedKind     NotificationKind = "invoice_received"
	WithdrawalRequestKind   NotificationKind = "withdrawal_request"
	WithdrawalUpdateKind    NotificationKind = "withdrawal_update"
	MessageReceivedKind     NotificationKind = "message_received"
	ReviewReceivedKind      NotificationKind = "review_received"
	DisputeRaisedKind       NotificationKind = "dispute_raised"
	DisputeUpdatedKind      NotificationKind = "dispute_updated"
	DisputeResolvedKind     NotificationKind = "dispute_resolved"
	UserBlockedKind         NotificationKind = "user_blocked"
	UserUnblockedKind       NotificationKind = "user_unblocked"
	SystemAnnouncementKind  NotificationKind = "system_announcement"
)

// RefField names one of the sparse subject references a notification may carry.
type RefField string

const (
	JobRef         RefField = "job"
	ApplicationRef RefField = "application"
	ProposalRef    RefField = "proposal"
	ContractRef    RefField = "contract"
	PaymentRef     RefField = "payment"
	MessageRef     RefField = "message"
	DisputeRef     RefField = "dispute"
)

// kindRefs maps every known kind to the subject references it may populate.
// Adding a kind means adding an entry here.
var kindRefs = map[NotificationKind][]RefField{
	JobPostedKind:           {JobRef},
	JobUpdatedKind:          {JobRef},
	JobDeletedKind:          {JobRef},
	ApplicationReceivedKind: {JobRef, ApplicationRef},
	ApplicationStatusKind:   {JobRef, ApplicationRef},
	ProposalReceivedKind:    {JobRef, ProposalRef},
	ProposalStatusKind:      {JobRef, ProposalRef},
	ContractOfferedKind:     {JobRef, ContractRef},
	ContractStatusKind:      {JobRef, ContractRef},
	MilestoneAddedKind:      {ContractRef},
	MilestoneUpdatedKind:    {ContractRef},
	MilestoneCompletedKind:  {ContractRef},
	PaymentReceivedKind:     {ContractRef, PaymentRef},
	PaymentCompletedKind:    {ContractRef, PaymentRef},
	InvoiceReceivedKind:     {ContractRef, PaymentRef},
	WithdrawalRequestKind:   {PaymentRef},
	WithdrawalUpdateKind:    {PaymentRef},
	MessageReceivedKind:     {MessageRef},
	ReviewReceivedKind:      {JobRef, ContractRef},
	DisputeRaisedKind:       {ContractRef, DisputeRef},
	DisputeUpdatedKind:      {ContractRef, DisputeRef},
	DisputeResolvedKind:     {ContractRef, DisputeRef},
	UserBlockedKind:         {},
	UserUnblockedKind:       {},
	SystemAnnouncementKind:  {},
}

func (k NotificationKind) String() string {
	return string(k)
}

func (k NotificationKind) IsValid() bool {
	_, ok := kindRefs[k]
	return ok
}

// AllowedRefs returns the subject references k may carry.
func (k NotificationKind) AllowedRefs() []RefField {
	return kindRefs[k]
}

// NotificationKinds returns every known kind.
func NotificationKinds() []NotificationKind {
	kinds := make([]NotificationKind, 0, len(kindRefs))
	for k := range kindRefs {
		kinds = append(kinds, k)
	}
	return kinds
}

type ReadState string

const (
	Unread ReadState = "unread"
	Read   ReadState = "read"
)

func (s ReadState) IsValid() bool {
	return s == Unread || s == Read
}

type DeliveryState string

// Delivered is part of the stored vocabulary but no code path produces it.
const (
	Sent      DeliveryState = "sent"
	Delivered DeliveryState = "delivered"
	Seen      DeliveryState = "read"
)

var deliveryRank = map[DeliveryState]int{
	Sent:      0,
	Delivered: 1,
	Seen:      2,
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s DeliveryState) CanAdvanceTo(next DeliveryState) bool {
	from, ok := deliveryRank[s]
	if !ok {
		return false
	}
	to, ok := deliveryRank[next]
	if !ok {
		return false
	}
	return to > from
}

// SubjectRefs holds the related-entity ids a notification points at.
// Only the fields allowed for the notification's kind may be set.
type SubjectRefs struct {
	Job         string `json:"job,omitempty" bson:"job,omitempty"`
	Application string `json:"application,omitempty" bson:"application,omitempty"`
	Proposal    string `json:"proposal,omitempty" bson:"proposal,omitempty"`
	Contract    string `json:"contract,omitempty" bson:"contract,omitempty"`
	Payment     string `json:"payment,omitempty" bson:"payment,omitempty"`
	Message     string `json:"message,omitempty" bson:"message,omitempty"`
	Dispute     string `json:"dispute,omitempty" bson:"dispute,omitempty"`
}

// Set returns the populated reference fields.
func (r SubjectRefs) Set() map[RefField]string {
	set := make(map[RefField]string)
	for field, value := range map[RefField]string{
		JobRef:         r.Job,
		ApplicationRef: r.Application,
		ProposalRef:    r.Proposal,
		ContractRef:    r.Contract,
		PaymentRef:     r.Payment,
		MessageRef:     r.Message,
		DisputeRef:     r.Dispute,
	} {
		if value != "" {
			set[field] = value
		}
	}
	return set
}

type Notification struct {
	ID        string           `json:"id"`
	Recipient string           `json:"recipient"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	Refs      SubjectRefs      `json:"refs"`
	ReadState ReadState        `json:"read_state"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Sender         string        `json:"sender"`
	Recipient      string        `json:"recipient"`
	Content        string        `json:"content"`
	DeliveryState  DeliveryState `json:"delivery_state"`
	CreatedAt      time.Time     `json:"created_at"`
}

// IsParticipant reports whether userID sent or received m.
func (m *Message) IsParticipant(userID string) bool {
	return m.Sender == userID || m.Recipient == userID
}

// ConversationSummary is computed from the latest message of a conversation.
type ConversationSummary struct {
	ConversationID string        `json:"conversation_id"`
	LastMessage    string        `json:"last_message"`
	Sender         string        `json:"sender"`
	Recipient      string        `json:"recipient"`
	DeliveryState  DeliveryState `json:"delivery_state"`
	CreatedAt      time.Time     `json:"created_at"`
}

type Role string

const (
	RoleUser    Role = "user"
	RoleAgent   Role = "agent"
	RoleAdmin   Role = "admin"
	RoleService Role = "service"
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	IsBlocked bool   `json:"is_blocked"`
}

// Identity is the verified caller returned by the auth provider.
type Identity struct {
	UserID string
	Role   Role
}

// AudienceQuery is the predicate used to compute fan-out recipients.
type AudienceQuery struct {
	ExcludeBlocked bool   `json:"exclude_blocked"`
	Roles          []Role `json:"roles,omitempty"` // empty means any role
	ExcludeRoles   []Role `json:"exclude_roles,omitempty"`
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	ReadState ReadState // empty means both
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// MaxPageOffset bounds the number of items a page request may skip.
const MaxPageOffset = math.MaxInt32

func (p Page) Offset() int {
	if p.Number < 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > MaxPageOffset/p.Size {
		return MaxPageOffset
	}
	return (p.Number - 1) * p.Size
}

// Pages returns the number of pages needed for total items.
func (p Page) Pages(total int64) int64 {
	if p.Size <= 0 {
		return 0
	}
	return (total + int64(p.Size) - 1) / int64(p.Size)
}

// NormalizePage clamps size into [1, max], using def for an unset size, and clamps
// number so its offset stays within MaxPageOffset.
func NormalizePage(number, size, def, max int) Page {
	if max < 1 {
		max = 1
	}
	if size <= 0 {
		size = def
	}
	if size < 1 {
		size = 1
	}
	if size > max {
		size = max
	}
	if number < 1 {
		number = 1
	}
	if number-1 > MaxPageOffset/size {
		number = MaxPageOffset/size + 1
	}
	return Page{Number: number, Size: size}
}

type RealtimeEventType string

const (
	NewMessageEvent  RealtimeEventType = "newMessage"
	MessageReadEvent RealtimeEventType = "messageRead"
)

// RealtimeEvent is pushed to every connection joined to ConversationID.
type RealtimeEvent struct {
	Type           RealtimeEventType `json:"type"`
	ConversationID string            `json:"conversation_id"`
	Message        *Message          `json:"message"`
}

// NotificationEvent is handed to post-commit observers after notifications are stored.
type NotificationEvent struct {
	Notifications []*Notification
}

// Clock returns the current time at the precision the document store keeps.
func Clock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// MatchesAudience evaluates q against a single user.
func MatchesAudience(u *User, q AudienceQuery) bool {
	if q.ExcludeBlocked && u.IsBlocked {
		return false
	}
	for _, r := range q.ExcludeRoles {
		if u.Role == r {
			return false
		}
	}
	if len(q.Roles) == 0 {
		return true
	}
	for _, r := range q.Roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
