package orders

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Visible is the pure filter/sort pipeline: it turns the current
// snapshot plus the view selection into the ordered list the renderer
// shows. The input slice is never mutated. Orders without items are never
// shown.
func Visible(list []Order, filter FilterState, cfg SortConfig, now time.Time) []Order {
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))

	visible := make([]Order, 0, len(list))
	for _, order := range list {
		if len(order.Items) == 0 {
			continue
		}
		if !matchesSearch(order, term) {
			continue
		}
		if !matchesStatus(order, filter.StatusToggles) {
			continue
		}
		if !matchesProducts(order, filter.SelectedProducts) {
			continue
		}
		if !matchesUrgency(order, filter.Urgency, now) {
			continue
		}
		visible = append(visible, order)
	}

	sortOrders(visible, cfg, now.Location())
	return visible
}

func matchesSearch(order Order, term string) bool {
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(order.Client), term) {
		return true
	}
	if strings.Contains(strconv.Itoa(order.ID), term) {
		return true
	}
	for _, item := range order.Items {
		if strings.Contains(strings.ToLower(item.Name), term) {
			return true
		}
	}
	return false
}

func matchesStatus(order Order, toggles map[Status]bool) bool {
	if len(toggles) == 0 {
		return true
	}
	return toggles[order.Status]
}

func matchesProducts(order Order, selected map[string]bool) bool {
	if len(selected) == 0 {
		return true
	}
	for _, item := range order.Items {
		if selected[item.Name] {
			return true
		}
	}
	return false
}

func matchesUrgency(order Order, level UrgencyLevel, now time.Time) bool {
	var threshold int
	switch level {
	case "", UrgencyAll:
		return true
	case UrgencyUrgent:
		threshold = 1
	case UrgencyVeryUrgent:
		threshold = 0
	default:
		return true
	}
	for _, item := range order.Items {
		if item.Status == StatusReady {
			continue
		}
		if DaysUntil(item.Deadline, now) <= threshold {
			return true
		}
	}
	return false
}

func sortOrders(list []Order, cfg SortConfig, loc *time.Location) {
	if cfg.Field == "" || cfg.Field == SortDefault {
		// Smart mode: status bucket first, then soonest deadline.
		sort.SliceStable(list, func(i, j int) bool {
			wi, wj := smartWeight(list[i].Status), smartWeight(list[j].Status)
			if wi != wj {
				return wi < wj
			}
			return EarliestDeadline(list[i], loc).Before(EarliestDeadline(list[j], loc))
		})
		return
	}

	desc := cfg.Direction == SortDesc
	sort.SliceStable(list, func(i, j int) bool {
		less := columnLess(list[i], list[j], cfg.Field)
		if desc {
			return columnLess(list[j], list[i], cfg.Field)
		}
		return less
	})
}

func columnLess(a, b Order, field SortField) bool {
	switch field {
	case SortByID:
		return a.ID < b.ID
	case SortByClient:
		return strings.ToLower(a.Client) < strings.ToLower(b.Client)
	case SortByStatus:
		return groupWeight(a.Status) < groupWeight(b.Status)
	case SortByCreated:
		// ISO timestamps compare correctly as strings.
		return a.CreatedAt < b.CreatedAt
	default:
		return false
	}
}
