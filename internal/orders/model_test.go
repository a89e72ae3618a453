package orders

import (
	"testing"
	"time"
)

func TestStatusCycleRoundTrip(t *testing.T) {
	status := StatusNotReady
	for i := 0; i < 3; i++ {
		status = status.Next()
	}
	if status != StatusNotReady {
		t.Fatalf("expected three cycles to return to not-ready, got %s", status)
	}
	if StatusNotReady.Next() != StatusInProgress {
		t.Fatalf("not-ready should cycle to in-progress")
	}
	if StatusInProgress.Next() != StatusReady {
		t.Fatalf("in-progress should cycle to ready")
	}
	if StatusReady.Next() != StatusNotReady {
		t.Fatalf("ready should cycle back to not-ready")
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.Local)
	cases := []struct {
		deadline string
		want     int
	}{
		{"2026-03-15", 0},
		{"2026-03-14", -1},
		{"2026-03-16", 1},
		{"2026-03-25", 10},
		{"", 999},
		{"not-a-date", 999},
	}
	for _, tc := range cases {
		if got := DaysUntil(tc.deadline, now); got != tc.want {
			t.Fatalf("DaysUntil(%q) = %d, want %d", tc.deadline, got, tc.want)
		}
	}
}

func TestFindItemPrefersServerID(t *testing.T) {
	order := Order{
		Items: []Item{
			{ID: 7, Name: "Flyer", Quantity: 100},
			{Name: "Flyer", Quantity: 100},
			{Name: "Banner", Quantity: 2},
		},
	}
	if idx := order.FindItem(ItemRef{ID: 7}); idx != 0 {
		t.Fatalf("expected id lookup to find index 0, got %d", idx)
	}
	// No id: fall back to the (name, quantity) pair.
	if idx := order.FindItem(ItemRef{Name: "Banner", Quantity: 2}); idx != 2 {
		t.Fatalf("expected name/quantity lookup to find index 2, got %d", idx)
	}
	if idx := order.FindItem(ItemRef{ID: 99}); idx != -1 {
		t.Fatalf("expected unknown id to miss, got %d", idx)
	}
	if idx := order.FindItem(ItemRef{Name: "Banner", Quantity: 3}); idx != -1 {
		t.Fatalf("expected quantity mismatch to miss, got %d", idx)
	}
}

func TestEarliestDeadlineSentinel(t *testing.T) {
	loc := time.Local
	withDeadlines := Order{Items: []Item{
		{Name: "A", Deadline: "2026-04-02"},
		{Name: "B", Deadline: "2026-04-01"},
	}}
	without := Order{Items: []Item{{Name: "C"}}}

	earliest := EarliestDeadline(withDeadlines, loc)
	want := time.Date(2026, 4, 1, 0, 0, 0, 0, loc)
	if !earliest.Equal(want) {
		t.Fatalf("expected earliest %s, got %s", want, earliest)
	}
	if !EarliestDeadline(withDeadlines, loc).Before(EarliestDeadline(without, loc)) {
		t.Fatalf("orders without deadlines must sort after real dates")
	}
}

func TestWritePayloadCarriesFullItemList(t *testing.T) {
	userID := 4
	order := Order{
		Client: "Acme",
		Items: []Item{
			{ID: 1, Name: "Flyer", Quantity: 100, Status: StatusReady, Deadline: "2026-04-01", Comment: "matte",
				ResponsibleUser: &User{ID: userID}},
			{Name: "Banner", Quantity: 2, Status: StatusNotReady, Deadline: "2026-04-05"},
		},
	}
	payload := order.WritePayload()
	if payload.Client != "Acme" {
		t.Fatalf("client not carried: %q", payload.Client)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("expected the whole item list, got %d items", len(payload.Items))
	}
	if payload.Items[0].ResponsibleUserID == nil || *payload.Items[0].ResponsibleUserID != 4 {
		t.Fatalf("responsible user id not carried: %+v", payload.Items[0].ResponsibleUserID)
	}
	if payload.Items[1].ResponsibleUserID != nil {
		t.Fatalf("missing responsible user should stay nil")
	}
	if payload.Items[1].ID != 0 {
		t.Fatalf("unpersisted item must not invent an id")
	}
}

func TestActiveProducts(t *testing.T) {
	catalog := []Product{{Name: "Flyer"}, {Name: "Banner"}, {Name: "Sticker"}}
	list := []Order{
		{Items: []Item{{Name: "Flyer"}}},
		{Items: []Item{{Name: "Banner"}, {Name: "Flyer"}}},
	}
	visible := ActiveProducts(catalog, list)
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible products, got %d", len(visible))
	}
	if visible[0].Name != "Flyer" || visible[1].Name != "Banner" {
		t.Fatalf("catalog order must be preserved, got %+v", visible)
	}
}
