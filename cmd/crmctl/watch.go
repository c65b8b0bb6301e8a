package main

import (
	"context"
	"fmt"

	"github.com/wolfman30/muvance-crm/internal/events"
	"github.com/wolfman30/muvance-crm/internal/realtime"
)

var eventLabels = map[string]string{
	events.TypeLeadCreated: "NEW",
	events.TypeLeadUpdated: "UPDATED",
	events.TypeLeadDeleted: "DELETED",
}

// cmdWatch streams lead events until interrupted.
func cmdWatch(ctx context.Context, a *app, args []string) error {
	feed, err := realtime.FeedURL(a.cfg.APIBaseURL)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, mutedStyle.Render("Watching "+feed+" (Ctrl-C to stop)"))
	return realtime.Watch(ctx, feed, a.sess.Credential().Token, func(evt events.LeadEvent) error {
		printEvent(a, evt)
		return nil
	})
}

func printEvent(a *app, evt events.LeadEvent) {
	label, ok := eventLabels[evt.Type]
	if !ok {
		label = evt.Type
	}
	line := fmt.Sprintf("%s %-8s %s", evt.OccurredAt.In(a.reports).Format("15:04:05"), label, evt.LeadID)
	if evt.FullName != "" {
		line += "  " + evt.FullName
	}
	if evt.Date != "" {
		line += "  " + evt.Date + " " + evt.Time
	}
	if evt.Status != "" {
		line += "  [" + evt.Status + "]"
	}
	fmt.Fprintln(a.out, line)
}
