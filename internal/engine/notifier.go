package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zafarze/ecoprint/internal/orders"
	"github.com/zafarze/ecoprint/internal/settings"
)

const DefaultNotifyPeriod = 5 * time.Minute

// Notifier raises one alert per item per day for deadlines hitting today
// (and tomorrow, when the day-before preference is on). Dedup keys live
// in the store's seen-set and are wiped at local midnight.
type Notifier struct {
	store  *orders.Store
	alerts AlertSink
	prefs  func() settings.Preferences
	logger *zap.Logger
	period time.Duration
	now    func() time.Time

	mu     sync.Mutex
	cancel chan struct{}
	done   sync.WaitGroup
}

type NotifierOptions struct {
	Preferences func() settings.Preferences
	Logger      *zap.Logger
	Period      time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func NewNotifier(store *orders.Store, alerts AlertSink, opts NotifierOptions) *Notifier {
	prefs := opts.Preferences
	if prefs == nil {
		prefs = settings.DefaultPreferences
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	period := opts.Period
	if period <= 0 {
		period = DefaultNotifyPeriod
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Notifier{
		store:  store,
		alerts: alerts,
		prefs:  prefs,
		logger: logger,
		period: period,
		now:    now,
	}
}

type dueAlert struct {
	order  orders.Order
	item   orders.Item
	window string // "today" or "tomorrow"
}

// Check scans every non-ready item for a deadline equal to today or
// tomorrow at local midnight and raises one aggregated alert for the
// unseen ones. Seen keys are recorded even when popups are off, so
// enabling them mid-day does not replay old alerts.
func (n *Notifier) Check() {
	now := n.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	prefs := n.prefs()

	var due []dueAlert
	for _, order := range n.store.Orders() {
		for _, item := range order.Items {
			if item.Status == orders.StatusReady {
				continue
			}
			deadline, err := time.ParseInLocation(orders.DeadlineLayout, item.Deadline, now.Location())
			if err != nil {
				continue
			}
			switch {
			case deadline.Equal(today):
				key := fmt.Sprintf("today-%d-%s", order.ID, item.Name)
				if n.store.MarkNotificationSeen(key) {
					due = append(due, dueAlert{order: order, item: item, window: "today"})
				}
			case deadline.Equal(tomorrow) && prefs.DayBeforeEnabled:
				key := fmt.Sprintf("tomorrow-%d-%s", order.ID, item.Name)
				if n.store.MarkNotificationSeen(key) {
					due = append(due, dueAlert{order: order, item: item, window: "tomorrow"})
				}
			}
		}
	}

	if len(due) == 0 || !prefs.PopupEnabled || n.alerts == nil {
		return
	}
	lines := make([]string, 0, len(due))
	for _, alert := range due {
		lines = append(lines, fmt.Sprintf("Order #%d (%s) - %q - %s",
			alert.order.ID, alert.order.Client, alert.item.Name, alert.window))
	}
	n.alerts.Notify(LevelWarning, "Attention! Items due", strings.Join(lines, "\n"))
}

// Start runs one immediate check, then periodic re-checks, plus the
// midnight reset of the seen-set.
func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		return
	}
	cancel := make(chan struct{})
	n.cancel = cancel

	n.Check()

	n.done.Add(2)
	go func() {
		defer n.done.Done()
		ticker := time.NewTicker(n.period)
		defer ticker.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				n.Check()
			}
		}
	}()
	go func() {
		defer n.done.Done()
		for {
			timer := time.NewTimer(untilNextMidnight(n.now()))
			select {
			case <-cancel:
				timer.Stop()
				return
			case <-timer.C:
				n.store.ClearSeenNotifications()
				n.logger.Info("deadline notification tracking reset")
			}
		}
	}()
}

func (n *Notifier) Stop() {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()
	if cancel == nil {
		return
	}
	close(cancel)
	n.done.Wait()
}

func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next.Sub(now)
}
