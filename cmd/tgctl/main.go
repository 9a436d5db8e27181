package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ikramov/sitebot/internal/config"
	"github.com/ikramov/sitebot/internal/logger"
	"github.com/ikramov/sitebot/internal/notifier"
	"github.com/ikramov/sitebot/internal/telegram"
)

const usage = `usage: tgctl <command> [flags]

account introspection (requires user account):
  channels            list channels and groups [-type channel|supergroup|group|all]
  dialogs             list all dialogs including private chats
  messages <peer_id>  fetch message history for one peer [-limit N] [-offset-id N] [-my-only]
  history             fetch message history across dialogs [-type ...] [-min-messages N] [-my-messages-only]
  stats               show per-kind dialog statistics

bot identity:
  notify [message]    send a test notification to the admin [-contact]
  webhook set|delete|info

common flags:
  -format   table, json, simple, yaml (history: summary, detailed, json, yaml)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg := config.Load()
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "channels":
		err = runChannels(ctx, cfg, os.Args[2:])
	case "dialogs":
		err = runDialogs(ctx, cfg, os.Args[2:])
	case "messages":
		err = runMessages(ctx, cfg, os.Args[2:])
	case "history":
		err = runHistory(ctx, cfg, os.Args[2:])
	case "stats":
		err = runStats(ctx, cfg, os.Args[2:])
	case "notify":
		err = runNotify(ctx, cfg, os.Args[2:])
	case "webhook":
		err = runWebhook(ctx, cfg, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newReader gates the introspection commands on user-account configuration.
func newReader(cfg *config.Config) (*telegram.Reader, error) {
	if err := cfg.RequireUserAccount(); err != nil {
		return nil, fmt.Errorf("%w (then run tg-auth once to create the session)", err)
	}
	return telegram.NewReader(cfg), nil
}

func runChannels(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("channels", flag.ExitOnError)
	format := fs.String("format", "table", "output format: table, json, simple, yaml")
	kind := fs.String("type", "all", "filter by kind: channel, supergroup, group, all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kindList, err := parseKinds(normalizeAll(*kind))
	if err != nil {
		return err
	}

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := reader.ListChannels(ctx)
	if err != nil {
		return err
	}
	return renderDialogs(os.Stdout, filterKinds(records, kindList), *format)
}

// normalizeAll maps the "all" pseudo-kind to an empty filter.
func normalizeAll(s string) string {
	if s == "all" {
		return ""
	}
	return s
}

func filterKinds(records []telegram.DialogRecord, kinds []telegram.DialogKind) []telegram.DialogRecord {
	if len(kinds) == 0 {
		return records
	}
	out := records[:0]
	for _, rec := range records {
		for _, k := range kinds {
			if rec.Kind == k {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func runDialogs(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("dialogs", flag.ExitOnError)
	format := fs.String("format", "table", "output format: table, json, simple, yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := reader.ListDialogs(ctx)
	if err != nil {
		return err
	}
	return renderDialogs(os.Stdout, records, *format)
}

func runMessages(ctx context.Context, cfg *config.Config, args []string) error {
	// peer id comes first, flags after: tgctl messages <peer_id> [flags].
	// Negative ids (groups, channels) also start with '-', so anything that
	// parses as an integer is the peer, not a flag.
	var peerArg string
	if len(args) > 0 {
		if _, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			peerArg, args = args[0], args[1:]
		}
	}

	fs := flag.NewFlagSet("messages", flag.ExitOnError)
	limit := fs.Int("limit", 100, "max messages to fetch")
	offsetID := fs.Int("offset-id", 0, "only messages older than this id")
	myOnly := fs.Bool("my-only", false, "only messages sent by you")
	format := fs.String("format", "table", "output format: table, json, simple, yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if peerArg == "" {
		return fmt.Errorf("usage: tgctl messages <peer_id> [flags] (use 'tgctl dialogs' to find ids)")
	}
	peer, err := strconv.ParseInt(peerArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid peer id: %q", peerArg)
	}

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := reader.GetMessages(ctx, peer, telegram.MessagesOptions{
		Limit:        *limit,
		OffsetID:     *offsetID,
		FromUserOnly: *myOnly,
	})
	if err != nil {
		return err
	}
	return renderMessages(os.Stdout, records, *format)
}

func runHistory(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 50, "max messages per dialog")
	kinds := fs.String("type", "", "comma-separated dialog kinds: channel, supergroup, group, private")
	minMessages := fs.Int("min-messages", 0, "skip dialogs that yielded fewer messages")
	mine := fs.Bool("my-messages-only", false, "only messages sent by you")
	format := fs.String("format", "summary", "output format: summary, detailed, json, yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kindList, err := parseKinds(normalizeAll(*kinds))
	if err != nil {
		return err
	}

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	histories, err := reader.History(ctx, telegram.HistoryOptions{
		Limit:          *limit,
		Kinds:          kindList,
		MinMessages:    *minMessages,
		MyMessagesOnly: *mine,
	})
	if err != nil {
		return err
	}
	return renderHistories(os.Stdout, histories, *format)
}

func runStats(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	format := fs.String("format", "table", "output format: table, json, simple, yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	stats, err := reader.GetStatistics(ctx)
	if err != nil {
		return err
	}
	return renderStats(os.Stdout, stats, *format)
}

func runNotify(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("notify", flag.ExitOnError)
	contact := fs.Bool("contact", false, "send a contact-form shaped test instead of plain text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !cfg.IsConfigured() {
		return fmt.Errorf("bot not configured: set TELEGRAM_BOT_TOKEN and TELEGRAM_ADMIN_ID")
	}

	sender := notifier.New(cfg)

	if *contact {
		ok := sender.SendContactNotification(ctx,
			"Test User", "test@example.com", "Test Subject", "This is a test contact form notification.")
		if !ok {
			return fmt.Errorf("notification was not delivered")
		}
		fmt.Println("contact-form test notification sent")
		return nil
	}

	text := "Test notification from tgctl"
	if fs.NArg() > 0 {
		text = strings.Join(fs.Args(), " ")
	}
	if !sender.SendToAdmin(ctx, text) {
		return fmt.Errorf("notification was not delivered")
	}
	fmt.Println("notification sent")
	return nil
}

func runWebhook(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tgctl webhook <set|delete|info>")
	}

	if !cfg.IsConfigured() {
		return fmt.Errorf("bot not configured: set TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL")
	}

	sender := notifier.New(cfg)

	switch args[0] {
	case "set":
		if !sender.SetWebhook(ctx) {
			return fmt.Errorf("failed to register webhook")
		}
		fmt.Printf("webhook set to %s\n", cfg.WebhookURL)
	case "delete":
		if !sender.DeleteWebhook(ctx) {
			return fmt.Errorf("failed to delete webhook")
		}
		fmt.Println("webhook deleted")
	case "info":
		info := sender.WebhookInfo(ctx)
		if info == nil {
			return fmt.Errorf("failed to fetch webhook info")
		}
		url := info.URL
		if url == "" {
			url = "(not set)"
		}
		fmt.Printf("url: %s\n", url)
		fmt.Printf("pending updates: %d\n", info.PendingUpdateCount)
		if info.LastErrorMessage != "" {
			fmt.Printf("last error: %s\n", info.LastErrorMessage)
		}
	default:
		return fmt.Errorf("unknown webhook action: %s (want set, delete or info)", args[0])
	}
	return nil
}

func parseKinds(s string) ([]telegram.DialogKind, error) {
	if s == "" {
		return nil, nil
	}
	var kinds []telegram.DialogKind
	for _, part := range strings.Split(s, ",") {
		switch k := telegram.DialogKind(strings.TrimSpace(part)); k {
		case telegram.KindChannel, telegram.KindSupergroup, telegram.KindGroup, telegram.KindPrivate:
			kinds = append(kinds, k)
		default:
			return nil, fmt.Errorf("unknown dialog kind: %q", part)
		}
	}
	return kinds, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
