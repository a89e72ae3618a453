package orders

import (
	"math"
	"time"
)

// Status is the readiness state shared by orders and their items. The
// backend computes an order's status from its items; the client never
// derives it locally.
type Status string

const (
	StatusNotReady   Status = "not-ready"
	StatusInProgress Status = "in-progress"
	StatusReady      Status = "ready"
)

// Next returns the status the cycle action moves to:
// not-ready -> in-progress -> ready -> not-ready.
func (s Status) Next() Status {
	switch s {
	case StatusNotReady:
		return StatusInProgress
	case StatusInProgress:
		return StatusReady
	default:
		return StatusNotReady
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusNotReady, StatusInProgress, StatusReady:
		return true
	}
	return false
}

// smartWeight orders status buckets for the default sort: work in
// progress first, finished orders last.
func smartWeight(s Status) int {
	switch s {
	case StatusInProgress:
		return 10
	case StatusNotReady:
		return 20
	case StatusReady:
		return 30
	default:
		return 99
	}
}

// groupWeight orders statuses when the user sorts by the status column.
func groupWeight(s Status) int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusNotReady:
		return 2
	case StatusReady:
		return 3
	default:
		return 99
	}
}

type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Product struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// HistoryEntry is a read-only audit line carried on the wire
// representation of an order.
type HistoryEntry struct {
	UserName  string `json:"user_name"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at_formatted"`
}

// Item is one product line inside an order. ID is zero until the backend
// has persisted the item; identity then falls back to the (name, quantity)
// pair, see Order.FindItem.
type Item struct {
	ID              int    `json:"id,omitempty"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	Status          Status `json:"status"`
	Deadline        string `json:"deadline,omitempty"`
	Comment         string `json:"comment,omitempty"`
	ResponsibleUser *User  `json:"responsible_user,omitempty"`
}

type Order struct {
	ID         int            `json:"id"`
	Client     string         `json:"client"`
	Status     Status         `json:"status"`
	CreatedAt  string         `json:"created_at"`
	IsArchived bool           `json:"is_archived,omitempty"`
	Items      []Item         `json:"items"`
	History    []HistoryEntry `json:"history,omitempty"`
}

// ItemWrite is the wire shape the backend accepts inside items_write.
// Updates replace the item list wholesale, so every write carries the
// full list.
type ItemWrite struct {
	ID                int    `json:"id,omitempty"`
	Name              string `json:"name" validate:"required"`
	Quantity          int    `json:"quantity" validate:"gt=0"`
	Status            Status `json:"status" validate:"oneof=not-ready in-progress ready"`
	Deadline          string `json:"deadline" validate:"required"`
	Comment           string `json:"comment"`
	ResponsibleUserID *int   `json:"responsible_user_id"`
}

type OrderWrite struct {
	Client string      `json:"client" validate:"required"`
	Items  []ItemWrite `json:"items_write" validate:"required,min=1,dive"`
}

// WritePayload converts an order snapshot into the full replace-style
// write payload.
func (o Order) WritePayload() OrderWrite {
	items := make([]ItemWrite, 0, len(o.Items))
	for _, item := range o.Items {
		var userID *int
		if item.ResponsibleUser != nil {
			id := item.ResponsibleUser.ID
			userID = &id
		}
		items = append(items, ItemWrite{
			ID:                item.ID,
			Name:              item.Name,
			Quantity:          item.Quantity,
			Status:            item.Status,
			Deadline:          item.Deadline,
			Comment:           item.Comment,
			ResponsibleUserID: userID,
		})
	}
	return OrderWrite{Client: o.Client, Items: items}
}

// ItemRef identifies an item inside an order: by server id when the item
// has been persisted, otherwise by the (name, quantity) pair.
type ItemRef struct {
	ID       int
	Name     string
	Quantity int
}

// FindItem resolves an ItemRef against the order's items. Returns the
// index of the match, or -1.
func (o Order) FindItem(ref ItemRef) int {
	for i, item := range o.Items {
		if ref.ID != 0 {
			if item.ID == ref.ID {
				return i
			}
			continue
		}
		if item.Name == ref.Name && item.Quantity == ref.Quantity {
			return i
		}
	}
	return -1
}

func (o Order) Clone() Order {
	clone := o
	if o.Items != nil {
		clone.Items = make([]Item, len(o.Items))
		for i, item := range o.Items {
			clone.Items[i] = item
			if item.ResponsibleUser != nil {
				user := *item.ResponsibleUser
				clone.Items[i].ResponsibleUser = &user
			}
		}
	}
	if o.History != nil {
		clone.History = append([]HistoryEntry(nil), o.History...)
	}
	return clone
}

func CloneOrders(list []Order) []Order {
	if list == nil {
		return nil
	}
	clones := make([]Order, len(list))
	for i, order := range list {
		clones[i] = order.Clone()
	}
	return clones
}

// DeadlineLayout is the calendar-date format the backend uses.
const DeadlineLayout = "2006-01-02"

// noDeadlineDays is reported for items without a deadline so that they
// never count as urgent.
const noDeadlineDays = 999

// farFuture sorts deadline-less orders after everything with a real date.
var farFuture = time.UnixMilli(9999999999999)

// DaysUntil returns whole days between now and the deadline, both
// truncated to local midnight. Today is 0, yesterday is -1. Items with no
// parseable deadline report a far-future day count.
func DaysUntil(deadline string, now time.Time) int {
	due, err := time.ParseInLocation(DeadlineLayout, deadline, now.Location())
	if err != nil {
		return noDeadlineDays
	}
	today := midnight(now)
	return int(math.Round(due.Sub(today).Hours() / 24))
}

// EarliestDeadline returns the soonest item deadline in the order, or the
// far-future sentinel when no item carries one.
func EarliestDeadline(o Order, loc *time.Location) time.Time {
	earliest := farFuture
	for _, item := range o.Items {
		due, err := time.ParseInLocation(DeadlineLayout, item.Deadline, loc)
		if err != nil {
			continue
		}
		if due.Before(earliest) {
			earliest = due
		}
	}
	return earliest
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ActiveProducts filters the catalog down to products that appear in at
// least one of the given orders. The filter chips the view offers are
// derived from this set.
func ActiveProducts(catalog []Product, list []Order) []Product {
	present := map[string]struct{}{}
	for _, order := range list {
		for _, item := range order.Items {
			present[item.Name] = struct{}{}
		}
	}
	visible := make([]Product, 0, len(catalog))
	for _, product := range catalog {
		if _, ok := present[product.Name]; ok {
			visible = append(visible, product)
		}
	}
	return visible
}
