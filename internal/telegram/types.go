// Package telegram provides the user-identity MTProto session manager and
// the normalized record shapes it produces.
package telegram

// DialogKind classifies a conversation entity.
type DialogKind string

// Dialog kinds. The set is exhaustive: every dialog maps to exactly one.
const (
	KindChannel    DialogKind = "channel"
	KindSupergroup DialogKind = "supergroup"
	KindGroup      DialogKind = "group"
	KindPrivate    DialogKind = "private"
)

// DialogRecord is a normalized view of a conversation entity.
// IDs use bot-API style marked form: users positive, basic groups negated,
// channels -100 prefixed.
type DialogRecord struct {
	ID                int64      `json:"id" yaml:"id"`
	Title             string     `json:"title" yaml:"title"`
	Name              string     `json:"name,omitempty" yaml:"name,omitempty"`
	Username          string     `json:"username,omitempty" yaml:"username,omitempty"`
	Kind              DialogKind `json:"type" yaml:"type"`
	UnreadCount       int        `json:"unread_count" yaml:"unread_count"`
	IsVerified        bool       `json:"is_verified" yaml:"is_verified"`
	IsBroadcast       bool       `json:"is_broadcast" yaml:"is_broadcast"`
	IsMegagroup       bool       `json:"is_megagroup" yaml:"is_megagroup"`
	ParticipantsCount *int       `json:"participants_count,omitempty" yaml:"participants_count,omitempty"`
}

// MessageRecord is a normalized view of a single message.
type MessageRecord struct {
	ID         int    `json:"id" yaml:"id"`
	Date       string `json:"date,omitempty" yaml:"date,omitempty"`
	Text       string `json:"text" yaml:"text"`
	SenderID   *int64 `json:"sender_id,omitempty" yaml:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty" yaml:"sender_name,omitempty"`
	IsReply    bool   `json:"is_reply" yaml:"is_reply"`
	ReplyToID  *int   `json:"reply_to_msg_id,omitempty" yaml:"reply_to_msg_id,omitempty"`
	MediaType  string `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	HasMedia   bool   `json:"has_media" yaml:"has_media"`
}

// StatisticsSnapshot holds per-kind dialog counts from one full scan.
type StatisticsSnapshot struct {
	Channels     int `json:"channels" yaml:"channels"`
	Supergroups  int `json:"supergroups" yaml:"supergroups"`
	Groups       int `json:"groups" yaml:"groups"`
	PrivateChats int `json:"chats" yaml:"chats"`
	Contacts     int `json:"contacts" yaml:"contacts"`
	TotalDialogs int `json:"total_dialogs" yaml:"total_dialogs"`
}

// MessagesOptions controls a single-peer history fetch.
type MessagesOptions struct {
	// Limit caps the number of fetched messages. Defaults to 100.
	Limit int
	// OffsetID, when positive, restricts results to messages with id < OffsetID.
	OffsetID int
	// FromUserOnly keeps only messages sent by the authenticated user.
	// Applied after fetching, so the result may be far below Limit.
	FromUserOnly bool
}

// HistoryOptions controls a cross-dialog history fetch.
type HistoryOptions struct {
	// Limit caps messages fetched per dialog.
	Limit int
	// Kinds filters dialogs by kind; empty means all.
	Kinds []DialogKind
	// MinMessages drops dialogs that yielded fewer messages.
	MinMessages int
	// MyMessagesOnly keeps only messages sent by the authenticated user.
	MyMessagesOnly bool
}

// DialogHistory pairs a dialog with its fetched messages.
type DialogHistory struct {
	Dialog   DialogRecord    `json:"dialog" yaml:"dialog"`
	Messages []MessageRecord `json:"messages" yaml:"messages"`
}
