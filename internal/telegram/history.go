package telegram

import (
	"context"
)

// History fetches message history across every dialog matching the options,
// sequentially and in dialog-list order. One dialog's failure is logged and
// skipped; it never aborts the remaining dialogs.
func (r *Reader) History(ctx context.Context, opts HistoryOptions) ([]DialogHistory, error) {
	client, err := r.resetSession()
	if err != nil {
		return nil, err
	}
	api := client.API()

	dialogs, err := fetchDialogs(ctx, api, r.limiter)
	if err != nil {
		return nil, err
	}
	records := normalizeDialogs(dialogs)

	var self int64
	if opts.MyMessagesOnly {
		self, err = selfID(ctx, client)
		if err != nil {
			r.log.Warn().Err(err).Msg("telegram: cannot resolve current user id, sender filter disabled")
			self = 0
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var out []DialogHistory
	for _, dialog := range records {
		if !kindMatches(dialog.Kind, opts.Kinds) {
			continue
		}

		peer, err := resolvePeer(dialog.ID, dialogs)
		if err != nil {
			r.log.Warn().Err(err).Int64("peer_id", dialog.ID).Msg("telegram: skipping dialog, peer unresolvable")
			continue
		}

		messages, err := r.fetchHistory(ctx, api, peer, dialog.ID, limit, 0)
		if err != nil {
			r.log.Warn().Err(err).Int64("peer_id", dialog.ID).Str("title", dialog.Title).
				Msg("telegram: skipping dialog, history fetch failed")
			continue
		}

		if opts.MyMessagesOnly && self != 0 {
			messages = filterBySender(messages, self)
		}

		if len(messages) < opts.MinMessages {
			continue
		}

		out = append(out, DialogHistory{Dialog: dialog, Messages: messages})
	}

	r.log.Info().Int("dialogs", len(out)).Msg("telegram: history collected")
	return out, nil
}

func kindMatches(kind DialogKind, kinds []DialogKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
