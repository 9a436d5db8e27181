package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ikramov/sitebot/internal/telegram"
)

// renderJSON and renderYAML are shared by every record shape, the table and
// simple renderers are per-shape.

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(v)
}

func renderDialogs(w io.Writer, records []telegram.DialogRecord, format string) error {
	switch format {
	case "json":
		return renderJSON(w, records)
	case "yaml":
		return renderYAML(w, records)
	case "simple":
		for _, d := range records {
			fmt.Fprintf(w, "%s %s %s\n", formatID(d.ID), d.Kind, dialogLabel(d))
		}
		return nil
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tUSERNAME\tUNREAD\tMEMBERS")
		for _, d := range records {
			members := "-"
			if d.ParticipantsCount != nil {
				members = fmt.Sprintf("%d", *d.ParticipantsCount)
			}
			username := "-"
			if d.Username != "" {
				username = "@" + d.Username
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				formatID(d.ID), d.Kind, dialogLabel(d), username, d.UnreadCount, members)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format: %q (want table, json, simple or yaml)", format)
	}
}

func renderMessages(w io.Writer, records []telegram.MessageRecord, format string) error {
	switch format {
	case "json":
		return renderJSON(w, records)
	case "yaml":
		return renderYAML(w, records)
	case "simple":
		for _, m := range records {
			fmt.Fprintf(w, "%d %s %s: %s\n", m.ID, m.Date, m.SenderName, oneLine(m.Text))
		}
		return nil
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDATE\tSENDER\tMEDIA\tTEXT")
		for _, m := range records {
			media := "-"
			if m.HasMedia {
				media = m.MediaType
			}
			sender := m.SenderName
			if sender == "" {
				sender = "-"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
				m.ID, m.Date, sender, media, truncate(oneLine(m.Text), 60))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format: %q (want table, json, simple or yaml)", format)
	}
}

func renderHistories(w io.Writer, histories []telegram.DialogHistory, format string) error {
	switch format {
	case "json":
		return renderJSON(w, histories)
	case "yaml":
		return renderYAML(w, histories)
	case "summary":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tMESSAGES")
		for _, h := range histories {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
				formatID(h.Dialog.ID), h.Dialog.Kind, dialogLabel(h.Dialog), len(h.Messages))
		}
		return tw.Flush()
	case "detailed":
		for i, h := range histories {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "=== %s (%s, %d messages) ===\n", dialogLabel(h.Dialog), h.Dialog.Kind, len(h.Messages))
			if err := renderMessages(w, h.Messages, "table"); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %q (want summary, detailed, json or yaml)", format)
	}
}

func renderStats(w io.Writer, stats telegram.StatisticsSnapshot, format string) error {
	switch format {
	case "json":
		return renderJSON(w, stats)
	case "yaml":
		return renderYAML(w, stats)
	case "simple", "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "channels\t%d\t%s\n", stats.Channels, percentage(stats.Channels, stats.TotalDialogs))
		fmt.Fprintf(tw, "supergroups\t%d\t%s\n", stats.Supergroups, percentage(stats.Supergroups, stats.TotalDialogs))
		fmt.Fprintf(tw, "groups\t%d\t%s\n", stats.Groups, percentage(stats.Groups, stats.TotalDialogs))
		fmt.Fprintf(tw, "private chats\t%d\t%s\n", stats.PrivateChats, percentage(stats.PrivateChats, stats.TotalDialogs))
		fmt.Fprintf(tw, "contacts\t%d\t\n", stats.Contacts)
		fmt.Fprintf(tw, "total dialogs\t%d\t\n", stats.TotalDialogs)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format: %q (want table, json, simple or yaml)", format)
	}
}

func percentage(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(part)/float64(total)*100)
}

func dialogLabel(d telegram.DialogRecord) string {
	if d.Title != "" {
		return d.Title
	}
	if d.Name != "" {
		return d.Name
	}
	if d.Username != "" {
		return "@" + d.Username
	}
	return "(untitled)"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
