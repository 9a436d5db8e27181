package telegram

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"
)

// channelMarkBase is the offset used for bot-API style channel ids
// (-100 prefix), matching how ids appear in bot payloads.
const channelMarkBase int64 = 1000000000000

// classify maps the platform flags of a dialog entity to its kind.
// Channels that are neither broadcast nor megagroup default to supergroup.
func classify(isChannel, isGroup, broadcast, megagroup bool) DialogKind {
	if isChannel {
		if broadcast {
			return KindChannel
		}
		// megagroup or not, a non-broadcast channel is a supergroup
		return KindSupergroup
	}
	if isGroup {
		return KindGroup
	}
	return KindPrivate
}

// entityIndex resolves dialog peers and message senders against the
// users/chats returned alongside a dialogs or history response.
type entityIndex struct {
	users    map[int64]*tg.User
	chats    map[int64]*tg.Chat
	channels map[int64]*tg.Channel
}

func newEntityIndex(users []tg.UserClass, chats []tg.ChatClass) *entityIndex {
	idx := &entityIndex{
		users:    make(map[int64]*tg.User, len(users)),
		chats:    make(map[int64]*tg.Chat),
		channels: make(map[int64]*tg.Channel),
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			idx.users[user.ID] = user
		}
	}
	for _, c := range chats {
		switch chat := c.(type) {
		case *tg.Chat:
			idx.chats[chat.ID] = chat
		case *tg.Channel:
			idx.channels[chat.ID] = chat
		}
	}
	return idx
}

// markedID converts a raw peer to its bot-API style id.
func markedID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return -channelMarkBase - p.ChannelID
	default:
		return 0
	}
}

// unmarkID reverses markedID. The second result tells which entity space the
// id belongs to: "user", "chat" or "channel".
func unmarkID(id int64) (int64, string) {
	switch {
	case id < -channelMarkBase:
		return -id - channelMarkBase, "channel"
	case id < 0:
		return -id, "chat"
	default:
		return id, "user"
	}
}

// displayName renders a user the way chat lists do: first name, optionally
// followed by last name, falling back to the username.
func displayName(u *tg.User) string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " " + u.LastName
		} else {
			name = u.LastName
		}
	}
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	return name
}

// dialogRecord normalizes one dialog against the entity index.
// Returns false when the peer entity is missing or inaccessible.
func dialogRecord(dlg *tg.Dialog, idx *entityIndex) (DialogRecord, bool) {
	switch peer := dlg.Peer.(type) {
	case *tg.PeerChannel:
		ch, ok := idx.channels[peer.ChannelID]
		if !ok {
			return DialogRecord{}, false
		}
		rec := DialogRecord{
			ID:          markedID(peer),
			Title:       ch.Title,
			Name:        ch.Title,
			Username:    ch.Username,
			Kind:        classify(true, false, ch.Broadcast, ch.Megagroup),
			UnreadCount: dlg.UnreadCount,
			IsVerified:  ch.Verified,
			IsBroadcast: ch.Broadcast,
			IsMegagroup: ch.Megagroup,
		}
		if count, ok := ch.GetParticipantsCount(); ok {
			rec.ParticipantsCount = &count
		}
		return rec, true

	case *tg.PeerChat:
		chat, ok := idx.chats[peer.ChatID]
		if !ok {
			return DialogRecord{}, false
		}
		count := chat.ParticipantsCount
		return DialogRecord{
			ID:                markedID(peer),
			Title:             chat.Title,
			Name:              chat.Title,
			Kind:              classify(false, true, false, false),
			UnreadCount:       dlg.UnreadCount,
			ParticipantsCount: &count,
		}, true

	case *tg.PeerUser:
		user, ok := idx.users[peer.UserID]
		if !ok {
			return DialogRecord{}, false
		}
		name := displayName(user)
		return DialogRecord{
			ID:          markedID(peer),
			Title:       name,
			Name:        name,
			Username:    user.Username,
			Kind:        classify(false, false, false, false),
			UnreadCount: dlg.UnreadCount,
			IsVerified:  user.Verified,
		}, true
	}
	return DialogRecord{}, false
}

// senderName derives a display name for a message sender.
// Order: first name (+ last name), entity title, @username, absent.
func senderName(from tg.PeerClass, idx *entityIndex) string {
	switch p := from.(type) {
	case *tg.PeerUser:
		if user, ok := idx.users[p.UserID]; ok {
			return displayName(user)
		}
	case *tg.PeerChannel:
		if ch, ok := idx.channels[p.ChannelID]; ok {
			if ch.Title != "" {
				return ch.Title
			}
			if ch.Username != "" {
				return "@" + ch.Username
			}
		}
	case *tg.PeerChat:
		if chat, ok := idx.chats[p.ChatID]; ok {
			return chat.Title
		}
	}
	return ""
}

// mediaKind returns a compact label for the attached media, like "Photo" or
// "WebPage". Empty media counts as no media at all.
func mediaKind(media tg.MessageMediaClass) (string, bool) {
	if media == nil {
		return "", false
	}
	if _, empty := media.(*tg.MessageMediaEmpty); empty {
		return "", false
	}
	label := strings.TrimPrefix(media.TypeName(), "messageMedia")
	label = strings.ReplaceAll(label, "_", " ")
	return label, true
}

// messageRecord normalizes one message. peerID is the marked id of the dialog
// the message was fetched from; private-chat messages without an explicit
// sender fall back to it.
func messageRecord(m *tg.Message, peerID int64, idx *entityIndex) MessageRecord {
	rec := MessageRecord{
		ID:   m.ID,
		Text: m.Message,
	}

	if m.Date != 0 {
		rec.Date = time.Unix(int64(m.Date), 0).UTC().Format(time.RFC3339)
	}

	from, hasFrom := m.GetFromID()
	switch {
	case hasFrom:
		id := markedID(from)
		rec.SenderID = &id
		rec.SenderName = senderName(from, idx)
	case peerID > 0:
		// incoming private-chat messages carry no from field; the peer is
		// the sender unless the message is outgoing
		if !m.Out {
			id := peerID
			rec.SenderID = &id
			rec.SenderName = senderName(&tg.PeerUser{UserID: peerID}, idx)
		}
	}

	if m.ReplyTo != nil {
		if header, ok := m.ReplyTo.(*tg.MessageReplyHeader); ok {
			rec.IsReply = true
			if replyTo, ok := header.GetReplyToMsgID(); ok {
				rec.ReplyToID = &replyTo
			}
		}
	}

	if label, has := mediaKind(m.Media); has {
		rec.MediaType = label
		rec.HasMedia = true
	}

	return rec
}

// extractMessages flattens any history response variant into plain messages
// plus the entity index needed for sender resolution.
func extractMessages(resp tg.MessagesMessagesClass) ([]tg.MessageClass, *entityIndex) {
	switch h := resp.(type) {
	case *tg.MessagesMessages:
		return h.Messages, newEntityIndex(h.Users, h.Chats)
	case *tg.MessagesMessagesSlice:
		return h.Messages, newEntityIndex(h.Users, h.Chats)
	case *tg.MessagesChannelMessages:
		return h.Messages, newEntityIndex(h.Users, h.Chats)
	}
	return nil, newEntityIndex(nil, nil)
}
