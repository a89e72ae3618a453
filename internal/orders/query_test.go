package orders

import (
	"reflect"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 9, 0, 0, 0, time.Local)
}

func dateOffset(days int) string {
	return fixedNow().AddDate(0, 0, days).Format(DeadlineLayout)
}

func testOrders() []Order {
	return []Order{
		{ID: 1, Client: "Acme", Status: StatusReady, CreatedAt: "2026-03-01T10:00:00Z", Items: []Item{
			{ID: 11, Name: "Flyer", Quantity: 100, Status: StatusReady, Deadline: dateOffset(1)},
		}},
		{ID: 2, Client: "Globex", Status: StatusInProgress, CreatedAt: "2026-03-02T10:00:00Z", Items: []Item{
			{ID: 21, Name: "Banner", Quantity: 2, Status: StatusInProgress, Deadline: dateOffset(3)},
		}},
		{ID: 3, Client: "Initech", Status: StatusNotReady, CreatedAt: "2026-03-03T10:00:00Z", Items: []Item{
			{ID: 31, Name: "Sticker", Quantity: 500, Status: StatusNotReady, Deadline: dateOffset(0)},
		}},
		{ID: 4, Client: "Empty Co", Status: StatusNotReady, CreatedAt: "2026-03-04T10:00:00Z"},
	}
}

func visibleIDs(list []Order) []int {
	ids := make([]int, 0, len(list))
	for _, order := range list {
		ids = append(ids, order.ID)
	}
	return ids
}

func TestVisibleDefaultFiltersSmartSort(t *testing.T) {
	got := Visible(testOrders(), NewFilterState(), DefaultSortConfig(), fixedNow())
	// Order 4 has no items and is never shown; in-progress first, then
	// not-ready, ready last.
	want := []int{2, 3, 1}
	if !reflect.DeepEqual(visibleIDs(got), want) {
		t.Fatalf("expected order %v, got %v", want, visibleIDs(got))
	}
}

func TestVisibleInProgressBeforeReady(t *testing.T) {
	list := []Order{
		{ID: 1, Client: "B", Status: StatusReady, Items: []Item{{Name: "x", Quantity: 1}}},
		{ID: 2, Client: "A", Status: StatusInProgress, Items: []Item{{Name: "x", Quantity: 1}}},
	}
	got := Visible(list, NewFilterState(), DefaultSortConfig(), fixedNow())
	if visibleIDs(got)[0] != 2 {
		t.Fatalf("in-progress must sort before ready, got %v", visibleIDs(got))
	}
}

func TestVisibleDeadlineTieBreakWithSentinel(t *testing.T) {
	list := []Order{
		{ID: 1, Status: StatusNotReady, Items: []Item{{Name: "a", Quantity: 1}}},
		{ID: 2, Status: StatusNotReady, Items: []Item{{Name: "b", Quantity: 1, Deadline: dateOffset(5)}}},
	}
	got := Visible(list, NewFilterState(), DefaultSortConfig(), fixedNow())
	// Equal status weight: the order with a real deadline wins; the one
	// without is treated as far future.
	if visibleIDs(got)[0] != 2 {
		t.Fatalf("expected order with deadline first, got %v", visibleIDs(got))
	}
}

func TestVisibleSearchMatchesItemName(t *testing.T) {
	filter := NewFilterState()
	filter.SearchTerm = "banner"
	got := Visible(testOrders(), filter, DefaultSortConfig(), fixedNow())
	if !reflect.DeepEqual(visibleIDs(got), []int{2}) {
		t.Fatalf("search by item name should match order 2, got %v", visibleIDs(got))
	}
}

func TestVisibleSearchMatchesClientAndID(t *testing.T) {
	filter := NewFilterState()
	filter.SearchTerm = "acme"
	if got := Visible(testOrders(), filter, DefaultSortConfig(), fixedNow()); !reflect.DeepEqual(visibleIDs(got), []int{1}) {
		t.Fatalf("search by client should match order 1, got %v", visibleIDs(got))
	}
	filter.SearchTerm = "3"
	if got := Visible(testOrders(), filter, DefaultSortConfig(), fixedNow()); !reflect.DeepEqual(visibleIDs(got), []int{3}) {
		t.Fatalf("search by id should match order 3, got %v", visibleIDs(got))
	}
}

func TestVisibleStatusToggles(t *testing.T) {
	filter := NewFilterState()
	filter.StatusToggles[StatusReady] = true
	got := Visible(testOrders(), filter, DefaultSortConfig(), fixedNow())
	if !reflect.DeepEqual(visibleIDs(got), []int{1}) {
		t.Fatalf("ready toggle should pass only order 1, got %v", visibleIDs(got))
	}
	filter.StatusToggles[StatusInProgress] = true
	got = Visible(testOrders(), filter, DefaultSortConfig(), fixedNow())
	if len(got) != 2 {
		t.Fatalf("two toggles should pass two orders, got %v", visibleIDs(got))
	}
}

func TestVisibleProductFilterExcludesOthers(t *testing.T) {
	filter := NewFilterState()
	filter.SelectedProducts["Flyer"] = true
	got := Visible(testOrders(), filter, DefaultSortConfig(), fixedNow())
	if !reflect.DeepEqual(visibleIDs(got), []int{1}) {
		t.Fatalf("product filter Flyer should pass only order 1, got %v", visibleIDs(got))
	}
}

func TestVisibleUrgencyFilters(t *testing.T) {
	list := []Order{
		{ID: 1, Client: "Acme", Status: StatusNotReady, Items: []Item{
			{Name: "Flyer", Quantity: 100, Status: StatusNotReady, Deadline: dateOffset(0)},
		}},
		{ID: 2, Client: "Globex", Status: StatusNotReady, Items: []Item{
			{Name: "Banner", Quantity: 1, Status: StatusNotReady, Deadline: dateOffset(1)},
		}},
		{ID: 3, Client: "Initech", Status: StatusNotReady, Items: []Item{
			{Name: "Poster", Quantity: 1, Status: StatusNotReady, Deadline: dateOffset(4)},
		}},
		// Ready items never count as urgent.
		{ID: 4, Client: "Umbrella", Status: StatusReady, Items: []Item{
			{Name: "Card", Quantity: 1, Status: StatusReady, Deadline: dateOffset(0)},
		}},
	}

	filter := NewFilterState()
	filter.Urgency = UrgencyVeryUrgent
	got := Visible(list, filter, DefaultSortConfig(), fixedNow())
	if !reflect.DeepEqual(visibleIDs(got), []int{1}) {
		t.Fatalf("very-urgent should pass only due-today order 1, got %v", visibleIDs(got))
	}

	filter.Urgency = UrgencyUrgent
	got = Visible(list, filter, DefaultSortConfig(), fixedNow())
	if len(got) != 2 {
		t.Fatalf("urgent should pass orders 1 and 2, got %v", visibleIDs(got))
	}
}

func TestVisibleManualSort(t *testing.T) {
	filter := NewFilterState()

	got := Visible(testOrders(), filter, SortConfig{Field: SortByClient, Direction: SortAsc}, fixedNow())
	if !reflect.DeepEqual(visibleIDs(got), []int{1, 2, 3}) {
		t.Fatalf("client asc should order 1,2,3, got %v", visibleIDs(got))
	}

	got = Visible(testOrders(), filter, SortConfig{Field: SortByID, Direction: SortDesc}, fixedNow())
	if !reflect.DeepEqual(visibleIDs(got), []int{3, 2, 1}) {
		t.Fatalf("id desc should order 3,2,1, got %v", visibleIDs(got))
	}

	got = Visible(testOrders(), filter, SortConfig{Field: SortByStatus, Direction: SortAsc}, fixedNow())
	// Manual status grouping: in-progress, not-ready, ready.
	if !reflect.DeepEqual(visibleIDs(got), []int{2, 3, 1}) {
		t.Fatalf("status asc should order 2,3,1, got %v", visibleIDs(got))
	}

	got = Visible(testOrders(), filter, SortConfig{Field: SortByCreated, Direction: SortAsc}, fixedNow())
	if !reflect.DeepEqual(visibleIDs(got), []int{1, 2, 3}) {
		t.Fatalf("created_at asc should order 1,2,3, got %v", visibleIDs(got))
	}
}

func TestVisibleIsPureAndIdempotent(t *testing.T) {
	input := testOrders()
	filter := NewFilterState()
	filter.SearchTerm = "e"

	first := Visible(input, filter, DefaultSortConfig(), fixedNow())
	second := Visible(input, filter, DefaultSortConfig(), fixedNow())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs must yield identical output")
	}
	if !reflect.DeepEqual(input, testOrders()) {
		t.Fatalf("input slice must not be mutated")
	}
}

func TestVisibleEmptyInput(t *testing.T) {
	if got := Visible(nil, NewFilterState(), DefaultSortConfig(), fixedNow()); len(got) != 0 {
		t.Fatalf("empty input must yield empty output, got %v", got)
	}
}
