package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name                                     string
		isChannel, isGroup, broadcast, megagroup bool
		want                                     DialogKind
	}{
		{"broadcast channel", true, false, true, false, KindChannel},
		{"megagroup", true, false, false, true, KindSupergroup},
		{"channel with neither flag", true, false, false, false, KindSupergroup},
		{"broadcast wins over megagroup", true, false, true, true, KindChannel},
		{"basic group", false, true, false, false, KindGroup},
		{"private chat", false, false, false, false, KindPrivate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.isChannel, tt.isGroup, tt.broadcast, tt.megagroup)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkedID(t *testing.T) {
	assert.Equal(t, int64(123), markedID(&tg.PeerUser{UserID: 123}))
	assert.Equal(t, int64(-456), markedID(&tg.PeerChat{ChatID: 456}))
	assert.Equal(t, int64(-1000000000789), markedID(&tg.PeerChannel{ChannelID: 789}))
}

func TestUnmarkID(t *testing.T) {
	tests := []struct {
		marked   int64
		wantID   int64
		wantKind string
	}{
		{123, 123, "user"},
		{-456, 456, "chat"},
		{-1000000000789, 789, "channel"},
	}

	for _, tt := range tests {
		id, kind := unmarkID(tt.marked)
		assert.Equal(t, tt.wantID, id)
		assert.Equal(t, tt.wantKind, kind)
	}
}

func TestMarkedIDRoundTrip(t *testing.T) {
	peers := []tg.PeerClass{
		&tg.PeerUser{UserID: 42},
		&tg.PeerChat{ChatID: 42},
		&tg.PeerChannel{ChannelID: 42},
	}
	for _, peer := range peers {
		id, kind := unmarkID(markedID(peer))
		assert.Equal(t, int64(42), id)
		switch peer.(type) {
		case *tg.PeerUser:
			assert.Equal(t, "user", kind)
		case *tg.PeerChat:
			assert.Equal(t, "chat", kind)
		case *tg.PeerChannel:
			assert.Equal(t, "channel", kind)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user tg.User
		want string
	}{
		{"first and last", tg.User{FirstName: "Jahongir", LastName: "Ikramov"}, "Jahongir Ikramov"},
		{"first only", tg.User{FirstName: "Jahongir"}, "Jahongir"},
		{"last only", tg.User{LastName: "Ikramov"}, "Ikramov"},
		{"username fallback", tg.User{Username: "jikramov"}, "@jikramov"},
		{"nothing", tg.User{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(&tt.user))
		})
	}
}

func TestMediaKind(t *testing.T) {
	t.Run("nil means no media", func(t *testing.T) {
		_, has := mediaKind(nil)
		assert.False(t, has)
	})

	t.Run("empty media means no media", func(t *testing.T) {
		_, has := mediaKind(&tg.MessageMediaEmpty{})
		assert.False(t, has)
	})

	t.Run("photo", func(t *testing.T) {
		label, has := mediaKind(&tg.MessageMediaPhoto{})
		require.True(t, has)
		assert.Equal(t, "Photo", label)
	})

	t.Run("web page", func(t *testing.T) {
		label, has := mediaKind(&tg.MessageMediaWebPage{})
		require.True(t, has)
		assert.Equal(t, "WebPage", label)
	})

	t.Run("document", func(t *testing.T) {
		label, has := mediaKind(&tg.MessageMediaDocument{})
		require.True(t, has)
		assert.Equal(t, "Document", label)
	})
}

func TestSenderName(t *testing.T) {
	idx := newEntityIndex(
		[]tg.UserClass{
			&tg.User{ID: 1, FirstName: "Anna", LastName: "K"},
			&tg.User{ID: 2, Username: "anon"},
		},
		[]tg.ChatClass{
			&tg.Chat{ID: 10, Title: "Old Group"},
			&tg.Channel{ID: 20, Title: "News"},
			&tg.Channel{ID: 21, Username: "untitled_channel"},
		},
	)

	assert.Equal(t, "Anna K", senderName(&tg.PeerUser{UserID: 1}, idx))
	assert.Equal(t, "@anon", senderName(&tg.PeerUser{UserID: 2}, idx))
	assert.Equal(t, "Old Group", senderName(&tg.PeerChat{ChatID: 10}, idx))
	assert.Equal(t, "News", senderName(&tg.PeerChannel{ChannelID: 20}, idx))
	assert.Equal(t, "@untitled_channel", senderName(&tg.PeerChannel{ChannelID: 21}, idx))
	assert.Equal(t, "", senderName(&tg.PeerUser{UserID: 999}, idx))
}

func TestMessageRecord(t *testing.T) {
	idx := newEntityIndex(
		[]tg.UserClass{&tg.User{ID: 7, FirstName: "Bob"}},
		nil,
	)

	t.Run("explicit sender", func(t *testing.T) {
		msg := &tg.Message{
			ID:      100,
			Date:    1700000000,
			Message: "hello",
		}
		msg.SetFromID(&tg.PeerUser{UserID: 7})

		rec := messageRecord(msg, -1000000000020, idx)

		assert.Equal(t, 100, rec.ID)
		assert.Equal(t, "2023-11-14T22:13:20Z", rec.Date)
		assert.Equal(t, "hello", rec.Text)
		require.NotNil(t, rec.SenderID)
		assert.Equal(t, int64(7), *rec.SenderID)
		assert.Equal(t, "Bob", rec.SenderName)
		assert.False(t, rec.HasMedia)
	})

	t.Run("incoming private message falls back to peer", func(t *testing.T) {
		msg := &tg.Message{ID: 101, Message: "hi"}

		rec := messageRecord(msg, 7, idx)

		require.NotNil(t, rec.SenderID)
		assert.Equal(t, int64(7), *rec.SenderID)
		assert.Equal(t, "Bob", rec.SenderName)
	})

	t.Run("outgoing private message has no sender fallback", func(t *testing.T) {
		msg := &tg.Message{ID: 102, Out: true, Message: "mine"}

		rec := messageRecord(msg, 7, idx)

		assert.Nil(t, rec.SenderID)
	})

	t.Run("reply header", func(t *testing.T) {
		msg := &tg.Message{ID: 103, Message: "re"}
		header := &tg.MessageReplyHeader{}
		header.SetReplyToMsgID(90)
		msg.SetReplyTo(header)

		rec := messageRecord(msg, 0, idx)

		assert.True(t, rec.IsReply)
		require.NotNil(t, rec.ReplyToID)
		assert.Equal(t, 90, *rec.ReplyToID)
	})

	t.Run("media", func(t *testing.T) {
		msg := &tg.Message{ID: 104}
		msg.SetMedia(&tg.MessageMediaPhoto{})

		rec := messageRecord(msg, 0, idx)

		assert.True(t, rec.HasMedia)
		assert.Equal(t, "Photo", rec.MediaType)
	})
}

func TestDialogRecord(t *testing.T) {
	idx := newEntityIndex(
		[]tg.UserClass{
			&tg.User{ID: 1, FirstName: "Anna", Username: "anna", Verified: true},
		},
		[]tg.ChatClass{
			&tg.Chat{ID: 10, Title: "Old Group", ParticipantsCount: 5},
			&tg.Channel{ID: 20, Title: "News", Username: "news", Broadcast: true},
			&tg.Channel{ID: 30, Title: "Chat", Megagroup: true},
		},
	)

	t.Run("broadcast channel", func(t *testing.T) {
		rec, ok := dialogRecord(&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 20}, UnreadCount: 3}, idx)
		require.True(t, ok)
		assert.Equal(t, int64(-1000000000020), rec.ID)
		assert.Equal(t, KindChannel, rec.Kind)
		assert.Equal(t, "News", rec.Title)
		assert.Equal(t, "news", rec.Username)
		assert.True(t, rec.IsBroadcast)
		assert.Equal(t, 3, rec.UnreadCount)
	})

	t.Run("megagroup is supergroup", func(t *testing.T) {
		rec, ok := dialogRecord(&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 30}}, idx)
		require.True(t, ok)
		assert.Equal(t, KindSupergroup, rec.Kind)
		assert.True(t, rec.IsMegagroup)
	})

	t.Run("basic group", func(t *testing.T) {
		rec, ok := dialogRecord(&tg.Dialog{Peer: &tg.PeerChat{ChatID: 10}}, idx)
		require.True(t, ok)
		assert.Equal(t, int64(-10), rec.ID)
		assert.Equal(t, KindGroup, rec.Kind)
		require.NotNil(t, rec.ParticipantsCount)
		assert.Equal(t, 5, *rec.ParticipantsCount)
	})

	t.Run("private chat", func(t *testing.T) {
		rec, ok := dialogRecord(&tg.Dialog{Peer: &tg.PeerUser{UserID: 1}}, idx)
		require.True(t, ok)
		assert.Equal(t, int64(1), rec.ID)
		assert.Equal(t, KindPrivate, rec.Kind)
		assert.Equal(t, "Anna", rec.Title)
		assert.True(t, rec.IsVerified)
	})

	t.Run("missing entity is skipped", func(t *testing.T) {
		_, ok := dialogRecord(&tg.Dialog{Peer: &tg.PeerUser{UserID: 999}}, idx)
		assert.False(t, ok)
	})
}

func TestAggregateStatistics(t *testing.T) {
	dialogs := &tg.MessagesDialogs{
		Dialogs: []tg.DialogClass{
			&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 1}},
			&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 2}},
			&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 3}},
			&tg.Dialog{Peer: &tg.PeerChat{ChatID: 4}},
			&tg.Dialog{Peer: &tg.PeerUser{UserID: 5}},
			&tg.Dialog{Peer: &tg.PeerUser{UserID: 6}},
		},
		Chats: []tg.ChatClass{
			&tg.Channel{ID: 1, Broadcast: true},
			&tg.Channel{ID: 2, Broadcast: true},
			&tg.Channel{ID: 3, Megagroup: true},
			&tg.Chat{ID: 4, Title: "G"},
		},
		Users: []tg.UserClass{
			&tg.User{ID: 5, Contact: true},
			&tg.User{ID: 6},
		},
	}

	stats := aggregateStatistics(dialogs)

	assert.Equal(t, 2, stats.Channels)
	assert.Equal(t, 1, stats.Supergroups)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 2, stats.PrivateChats)
	assert.Equal(t, 1, stats.Contacts)
	assert.Equal(t, 6, stats.TotalDialogs)
}

func TestFilterBySender(t *testing.T) {
	mine := int64(7)
	other := int64(8)

	records := []MessageRecord{
		{ID: 1, SenderID: &mine},
		{ID: 2, SenderID: &other},
		{ID: 3},
		{ID: 4, SenderID: &mine},
	}

	got := filterBySender(records, 7)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 4, got[1].ID)
}

func TestNormalizeDialogsSkipsMissingEntities(t *testing.T) {
	dialogs := &tg.MessagesDialogs{
		Dialogs: []tg.DialogClass{
			&tg.Dialog{Peer: &tg.PeerUser{UserID: 1}},
			&tg.Dialog{Peer: &tg.PeerUser{UserID: 2}},
		},
		Users: []tg.UserClass{&tg.User{ID: 1, FirstName: "A"}},
	}

	records := normalizeDialogs(dialogs)

	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].ID)
}

func TestExtractMessages(t *testing.T) {
	msg := &tg.Message{ID: 1}

	variants := []tg.MessagesMessagesClass{
		&tg.MessagesMessages{Messages: []tg.MessageClass{msg}},
		&tg.MessagesMessagesSlice{Messages: []tg.MessageClass{msg}},
		&tg.MessagesChannelMessages{Messages: []tg.MessageClass{msg}},
	}

	for _, v := range variants {
		msgs, idx := extractMessages(v)
		require.NotNil(t, idx)
		require.Len(t, msgs, 1)
	}
}
