package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/tg"
)

const dialogPageLimit = 100

var errDialogsNotModified = errors.New("dialogs not modified")

// fetchDialogs pages through the full dialog list via MessagesGetDialogs.
// Pagination follows the (offset_date, offset_id, offset_peer) triple, with
// access hashes collected from earlier pages. One call enumerates everything;
// the caller is expected to run it on a freshly connected session so the
// server-side iteration state is clean.
func fetchDialogs(ctx context.Context, api *tg.Client, limiter *RateLimiter) (*tg.MessagesDialogs, error) {
	result := &tg.MessagesDialogs{}

	offsetDate := 0
	offsetID := 0
	var offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}

	userHashes := make(map[int64]int64)
	channelHashes := make(map[int64]int64)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetDate: offsetDate,
			OffsetID:   offsetID,
			OffsetPeer: offsetPeer,
			Limit:      dialogPageLimit,
		})
		if err != nil {
			if wait := floodWaitSeconds(err); wait > 0 {
				limiter.SetFloodWait(wait)
			}
			return nil, fmt.Errorf("get dialogs: %w", err)
		}

		batch, err := normalizeDialogsResponse(resp)
		if err != nil {
			if errors.Is(err, errDialogsNotModified) {
				return result, nil
			}
			return nil, err
		}

		if len(batch.Dialogs) == 0 {
			break
		}

		result.Dialogs = append(result.Dialogs, batch.Dialogs...)
		result.Messages = append(result.Messages, batch.Messages...)
		result.Chats = append(result.Chats, batch.Chats...)
		result.Users = append(result.Users, batch.Users...)

		collectAccessHashes(batch, userHashes, channelHashes)

		last := batch.Dialogs[len(batch.Dialogs)-1]
		prevDate, prevID := offsetDate, offsetID

		switch dlg := last.(type) {
		case *tg.Dialog:
			offsetID = dlg.TopMessage
			offsetDate = topMessageDate(batch.Messages, dlg.TopMessage)
			offsetPeer = peerToInput(dlg.Peer, userHashes, channelHashes)
		case *tg.DialogFolder:
			offsetID = dlg.TopMessage
			offsetDate = topMessageDate(batch.Messages, dlg.TopMessage)
			offsetPeer = peerToInput(dlg.Peer, userHashes, channelHashes)
		default:
			offsetPeer = &tg.InputPeerEmpty{}
		}

		// keep previous offsets when the page did not yield usable ones,
		// otherwise the server would restart iteration from the top
		if offsetDate == 0 {
			offsetDate = prevDate
		}
		if offsetID == 0 {
			offsetID = prevID
		}

		if len(batch.Dialogs) < dialogPageLimit {
			break
		}
	}

	return result, nil
}

func normalizeDialogsResponse(resp tg.MessagesDialogsClass) (*tg.MessagesDialogs, error) {
	switch data := resp.(type) {
	case *tg.MessagesDialogs:
		return data, nil
	case *tg.MessagesDialogsSlice:
		return &tg.MessagesDialogs{
			Dialogs:  data.Dialogs,
			Messages: data.Messages,
			Chats:    data.Chats,
			Users:    data.Users,
		}, nil
	case *tg.MessagesDialogsNotModified:
		return nil, errDialogsNotModified
	default:
		return nil, fmt.Errorf("unexpected dialogs response: %T", resp)
	}
}

func collectAccessHashes(batch *tg.MessagesDialogs, userHashes, channelHashes map[int64]int64) {
	for _, entity := range batch.Users {
		if user, ok := entity.(*tg.User); ok {
			userHashes[user.ID] = user.AccessHash
		}
	}
	for _, entity := range batch.Chats {
		if ch, ok := entity.(*tg.Channel); ok {
			channelHashes[ch.ID] = ch.AccessHash
		}
	}
}

func topMessageDate(messages []tg.MessageClass, id int) int {
	for _, msg := range messages {
		switch m := msg.(type) {
		case *tg.Message:
			if m.ID == id {
				return m.Date
			}
		case *tg.MessageService:
			if m.ID == id {
				return m.Date
			}
		}
	}
	return 0
}

func peerToInput(peer tg.PeerClass, userHashes, channelHashes map[int64]int64) tg.InputPeerClass {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return &tg.InputPeerUser{UserID: p.UserID, AccessHash: userHashes[p.UserID]}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}
	case *tg.PeerChannel:
		return &tg.InputPeerChannel{ChannelID: p.ChannelID, AccessHash: channelHashes[p.ChannelID]}
	default:
		return &tg.InputPeerEmpty{}
	}
}

// resolvePeer locates the dialog whose marked id equals id and builds the
// input peer for follow-up history calls.
func resolvePeer(id int64, dialogs *tg.MessagesDialogs) (tg.InputPeerClass, error) {
	rawID, space := unmarkID(id)

	switch space {
	case "channel":
		for _, entity := range dialogs.Chats {
			if ch, ok := entity.(*tg.Channel); ok && ch.ID == rawID {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
			}
		}
	case "chat":
		for _, entity := range dialogs.Chats {
			if chat, ok := entity.(*tg.Chat); ok && chat.ID == rawID {
				return &tg.InputPeerChat{ChatID: chat.ID}, nil
			}
		}
	case "user":
		for _, entity := range dialogs.Users {
			if user, ok := entity.(*tg.User); ok && user.ID == rawID {
				return &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}, nil
			}
		}
	}

	return nil, fmt.Errorf("peer %d not found among dialogs", id)
}
