package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/zafarze/ecoprint/internal/orders"
	"github.com/zafarze/ecoprint/internal/settings"
)

// ConsoleRenderer is the stand-in view: it prints the visible orders as a
// table. The real dashboard renders the same list in the browser.
type ConsoleRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{out: out}
}

func (r *ConsoleRenderer) RenderOrders(list []orders.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := tabwriter.NewWriter(r.out, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "-- %d orders at %s --\n", len(list), time.Now().Format("15:04:05"))
	fmt.Fprintln(w, "ID\tCLIENT\tSTATUS\tITEMS")
	for _, order := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", order.ID, order.Client, order.Status, itemSummary(order.Items))
	}
	_ = w.Flush()
}

func itemSummary(items []orders.Item) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		part := fmt.Sprintf("%s x%d [%s]", item.Name, item.Quantity, item.Status)
		if item.Deadline != "" {
			part += " due " + item.Deadline
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

// ConsoleAlertSink prints notifications and rings the terminal bell for
// warnings when the sound preference is on.
type ConsoleAlertSink struct {
	mu    sync.Mutex
	out   io.Writer
	prefs func() settings.Preferences
}

func NewConsoleAlertSink(out io.Writer, prefs func() settings.Preferences) *ConsoleAlertSink {
	if prefs == nil {
		prefs = settings.DefaultPreferences
	}
	return &ConsoleAlertSink{out: out, prefs: prefs}
}

func (s *ConsoleAlertSink) Notify(level, title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "[%s] %s: %s\n", strings.ToUpper(level), title, message)
	if level == "warning" && s.prefs().SoundEnabled {
		fmt.Fprint(s.out, "\a")
	}
}
