package telegram

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/tg"

	"github.com/ikramov/sitebot/internal/config"
	"github.com/ikramov/sitebot/internal/logger"
)

// userSession is the slice of the connected client the reader needs: raw
// API access, the cached self user and a way to drop the connection.
type userSession interface {
	API() *tg.Client
	Self() *tg.User
	Stop()
}

// gotgprotoSession adapts a gotgproto client to userSession.
type gotgprotoSession struct {
	*gotgproto.Client
}

func (s gotgprotoSession) Self() *tg.User { return s.Client.Self }

// clientFactory creates a user-identity session. Overridable for tests.
type clientFactory func(cfg *config.Config) (userSession, error)

// Reader owns the user-identity MTProto session and performs the read
// operations the platform restricts to real user accounts.
//
// The session is created lazily and kept open between calls, but every
// enumeration starts with a cursor reset: the previous connection is stopped
// and a fresh one established, because the server ties dialog iteration
// state to the connection lifetime. The design assumes one caller at a time;
// concurrent readers of the same session are not coordinated.
type Reader struct {
	cfg     *config.Config
	log     *logger.Logger
	limiter *RateLimiter
	factory clientFactory

	mu     sync.Mutex
	client userSession
}

// NewReader creates a Reader. No connection is made until the first call.
func NewReader(cfg *config.Config) *Reader {
	return &Reader{
		cfg:     cfg,
		log:     logger.Get(),
		limiter: DefaultRateLimiter(),
		factory: newUserClient,
	}
}

// newUserClient connects a gotgproto client authenticated as the configured
// phone number. The session lives in its own sqlite database, so it can never
// collide with anything the bot identity stores. First run prompts for the
// verification code on the terminal.
func newUserClient(cfg *config.Config) (userSession, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	sessionPath := SessionPath(cfg)

	client, err := gotgproto.NewClient(
		cfg.APIID,
		cfg.APIHash,
		gotgproto.ClientTypePhone(cfg.PhoneNumber),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(sessionPath)),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect user client: %w", err)
	}
	return gotgprotoSession{client}, nil
}

// Close stops the underlying client, if any.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		r.client.Stop()
		r.client = nil
	}
}

// resetSession performs the cursor reset: stop any open connection and
// establish a fresh one. Used before every enumeration.
func (r *Reader) resetSession() (userSession, error) {
	if err := r.cfg.RequireUserAccount(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		r.log.Debug().Msg("telegram: cursor reset, stopping previous session")
		r.client.Stop()
		r.client = nil
	}

	client, err := r.factory(r.cfg)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}

// currentSession reuses an open connection, creating one only when absent.
// Used by operations that do not enumerate anything.
func (r *Reader) currentSession() (userSession, error) {
	if err := r.cfg.RequireUserAccount(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}
	client, err := r.factory(r.cfg)
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}

// ListDialogs enumerates every dialog of the authenticated account.
func (r *Reader) ListDialogs(ctx context.Context) ([]DialogRecord, error) {
	client, err := r.resetSession()
	if err != nil {
		return nil, err
	}

	dialogs, err := fetchDialogs(ctx, client.API(), r.limiter)
	if err != nil {
		return nil, err
	}

	records := normalizeDialogs(dialogs)
	r.log.Info().Int("count", len(records)).Msg("telegram: dialogs listed")
	return records, nil
}

// ListChannels enumerates joined channels, supergroups and groups,
// excluding private chats.
func (r *Reader) ListChannels(ctx context.Context) ([]DialogRecord, error) {
	all, err := r.ListDialogs(ctx)
	if err != nil {
		return nil, err
	}

	channels := make([]DialogRecord, 0, len(all))
	for _, rec := range all {
		if rec.Kind == KindPrivate {
			continue
		}
		channels = append(channels, rec)
	}
	return channels, nil
}

// GetStatistics computes per-kind dialog counts in a single full scan.
func (r *Reader) GetStatistics(ctx context.Context) (StatisticsSnapshot, error) {
	client, err := r.resetSession()
	if err != nil {
		return StatisticsSnapshot{}, err
	}

	dialogs, err := fetchDialogs(ctx, client.API(), r.limiter)
	if err != nil {
		return StatisticsSnapshot{}, err
	}

	stats := aggregateStatistics(dialogs)
	r.log.Info().Int("total", stats.TotalDialogs).Msg("telegram: statistics collected")
	return stats, nil
}

// CurrentUserID returns the authenticated account's numeric id.
func (r *Reader) CurrentUserID(ctx context.Context) (int64, error) {
	client, err := r.currentSession()
	if err != nil {
		return 0, err
	}
	return selfID(ctx, client)
}

// GetMessages fetches messages from one peer, newest first. See
// MessagesOptions for offset and filter semantics.
func (r *Reader) GetMessages(ctx context.Context, peerID int64, opts MessagesOptions) ([]MessageRecord, error) {
	client, err := r.resetSession()
	if err != nil {
		return nil, err
	}
	api := client.API()

	// the dialog scan doubles as peer resolution: it yields the access
	// hashes needed for the history call
	dialogs, err := fetchDialogs(ctx, api, r.limiter)
	if err != nil {
		return nil, err
	}

	peer, err := resolvePeer(peerID, dialogs)
	if err != nil {
		return nil, err
	}

	var self int64
	if opts.FromUserOnly {
		self, err = selfID(ctx, client)
		if err != nil {
			// degrade to an unfiltered fetch rather than failing the call
			r.log.Warn().Err(err).Msg("telegram: cannot resolve current user id, sender filter disabled")
			self = 0
		}
	}

	records, err := r.fetchHistory(ctx, api, peer, peerID, opts.Limit, opts.OffsetID)
	if err != nil {
		return nil, err
	}

	if opts.FromUserOnly && self != 0 {
		records = filterBySender(records, self)
	}

	r.log.Info().Int64("peer_id", peerID).Int("count", len(records)).Msg("telegram: messages retrieved")
	return records, nil
}

// fetchHistory pages backward through a peer's history until limit messages
// are collected or the history is exhausted.
func (r *Reader) fetchHistory(ctx context.Context, api *tg.Client, peer tg.InputPeerClass, peerID int64, limit, offsetID int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []MessageRecord
	offset := offsetID

	for len(records) < limit {
		page := limit - len(records)
		if page > 100 {
			page = 100 // telegram api page cap
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: offset,
			Limit:    page,
		})
		if err != nil {
			if wait := floodWaitSeconds(err); wait > 0 {
				r.limiter.SetFloodWait(wait)
			}
			return nil, fmt.Errorf("get history: %w", err)
		}

		messages, idx := extractMessages(resp)
		if len(messages) == 0 {
			break
		}

		got := 0
		for _, msg := range messages {
			// every variant carries an id and must keep the offset moving,
			// or a page of deleted messages would repeat the same request
			switch m := msg.(type) {
			case *tg.Message:
				records = append(records, messageRecord(m, peerID, idx))
				offset = m.ID
			case *tg.MessageService:
				offset = m.ID
			case *tg.MessageEmpty:
				offset = m.ID
			}
			got++
			if len(records) >= limit {
				break
			}
		}
		if got < page {
			break
		}
	}

	return records, nil
}

// normalizeDialogs converts a raw dialog list to records, skipping dialogs
// whose entity is missing (deactivated or otherwise inaccessible).
func normalizeDialogs(dialogs *tg.MessagesDialogs) []DialogRecord {
	idx := newEntityIndex(dialogs.Users, dialogs.Chats)

	records := make([]DialogRecord, 0, len(dialogs.Dialogs))
	for _, d := range dialogs.Dialogs {
		dlg, ok := d.(*tg.Dialog)
		if !ok {
			continue
		}
		if rec, ok := dialogRecord(dlg, idx); ok {
			records = append(records, rec)
		}
	}
	return records
}

// aggregateStatistics classifies every dialog and counts contacts among
// private chat peers.
func aggregateStatistics(dialogs *tg.MessagesDialogs) StatisticsSnapshot {
	idx := newEntityIndex(dialogs.Users, dialogs.Chats)

	var stats StatisticsSnapshot
	for _, d := range dialogs.Dialogs {
		dlg, ok := d.(*tg.Dialog)
		if !ok {
			continue
		}
		rec, ok := dialogRecord(dlg, idx)
		if !ok {
			continue
		}

		stats.TotalDialogs++
		switch rec.Kind {
		case KindChannel:
			stats.Channels++
		case KindSupergroup:
			stats.Supergroups++
		case KindGroup:
			stats.Groups++
		case KindPrivate:
			stats.PrivateChats++
			if peer, ok := dlg.Peer.(*tg.PeerUser); ok {
				if user, ok := idx.users[peer.UserID]; ok && user.Contact {
					stats.Contacts++
				}
			}
		}
	}
	return stats
}

// selfID resolves the authenticated user's id, preferring the cached self
// user and falling back to a UsersGetUsers call.
func selfID(ctx context.Context, client userSession) (int64, error) {
	if self := client.Self(); self != nil {
		return self.ID, nil
	}

	users, err := client.API().UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUserSelf{}})
	if err != nil {
		return 0, fmt.Errorf("get self: %w", err)
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			return user.ID, nil
		}
	}
	return 0, fmt.Errorf("self user not in response")
}

// filterBySender keeps only records whose sender id equals senderID.
func filterBySender(records []MessageRecord, senderID int64) []MessageRecord {
	out := records[:0]
	for _, rec := range records {
		if rec.SenderID != nil && *rec.SenderID == senderID {
			out = append(out, rec)
		}
	}
	return out
}
