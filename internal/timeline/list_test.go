package timeline

import (
	"testing"
	"time"
)

type plan struct{ id string }

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func hour(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Hour)
}

func kinds(l *List[*plan]) []Kind {
	var out []Kind
	for e := range l.All() {
		out = append(out, e.Kind())
	}
	return out
}

func TestList_InsertKeepsOrder(t *testing.T) {
	var l List[*plan]
	l.Insert(NewLoad(hour(3), 1, &plan{"a"}))
	l.Insert(NewUpdateMaximum[*plan](hour(1), 2))
	l.Insert(NewLoad(hour(2), 1, &plan{"b"}))
	l.Insert(NewLoad(hour(5), -1, &plan{"a"}))

	var prev time.Time
	for e := range l.All() {
		if e.Date().Before(prev) {
			t.Fatalf("events out of order: %v before %v", e.Date(), prev)
		}
		prev = e.Date()
	}
	if l.Len() != 4 {
		t.Errorf("Len() = %d, want 4", l.Len())
	}
}

func TestList_SameInstantPriority(t *testing.T) {
	var l List[*plan]
	l.Insert(NewLoad(hour(1), 1, &plan{"start"}))
	l.Insert(NewLoad(hour(1), -1, &plan{"release"}))
	l.Insert(NewUpdateMinimum[*plan](hour(1), 0))
	l.Insert(NewUpdateMaximum[*plan](hour(1), 3))
	l.Insert(NewSetOnhand[*plan](hour(1), 10))

	want := []Kind{KindSetOnhand, KindUpdateMaximum, KindUpdateMinimum, KindLoad, KindLoad}
	got := kinds(&l)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	var loads []float64
	for e := range l.All() {
		if e.Kind() == KindLoad {
			loads = append(loads, e.Quantity())
		}
	}
	if loads[0] != -1 || loads[1] != 1 {
		t.Errorf("release should precede start at the same instant, got %v", loads)
	}
}

func TestList_InsertionOrderBreaksTies(t *testing.T) {
	var l List[*plan]
	a := NewLoad(hour(1), 1, &plan{"a"})
	b := NewLoad(hour(1), 1, &plan{"b"})
	l.Insert(a)
	l.Insert(b)

	c := l.Begin()
	if c.Event() != a {
		t.Fatal("first inserted should come first")
	}
	c.Next()
	if c.Event() != b {
		t.Fatal("second inserted should come second")
	}
}

func TestList_Onhand(t *testing.T) {
	var l List[*plan]
	p := &plan{"p"}
	q := &plan{"q"}
	l.Insert(NewLoad(hour(1), 2, p))
	l.Insert(NewLoad(hour(4), -2, p))
	l.Insert(NewLoad(hour(2), 1, q))
	l.Insert(NewLoad(hour(3), -1, q))

	tests := []struct {
		at   time.Time
		want float64
	}{
		{hour(0), 0},
		{hour(1), 2},
		{hour(2), 3},
		{hour(3), 2},
		{hour(4), 0},
		{hour(9), 0},
	}
	for _, tt := range tests {
		if got := l.OnhandAt(tt.at); got != tt.want {
			t.Errorf("OnhandAt(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestList_SetOnhandResets(t *testing.T) {
	var l List[*plan]
	bucket := NewSetOnhand[*plan](hour(0), 8)
	l.Insert(bucket)
	l.Insert(NewLoad(hour(1), -3, &plan{"x"}))
	l.Insert(NewSetOnhand[*plan](hour(5), 8))
	l.Insert(NewLoad(hour(6), -1, &plan{"y"}))

	if got := l.OnhandAt(hour(2)); got != 5 {
		t.Errorf("OnhandAt(2) = %v, want 5", got)
	}
	if got := l.OnhandAt(hour(6)); got != 7 {
		t.Errorf("OnhandAt(6) = %v, want 7", got)
	}

	l.SetValue(bucket, 10)
	if got := l.OnhandAt(hour(2)); got != 7 {
		t.Errorf("after SetValue, OnhandAt(2) = %v, want 7", got)
	}
}

func TestList_EraseAndMove(t *testing.T) {
	var l List[*plan]
	p := &plan{"p"}
	start := NewLoad(hour(1), 1, p)
	end := NewLoad(hour(3), -1, p)
	l.Insert(start)
	l.Insert(end)

	l.Move(start, hour(2), 1)
	if !start.Date().Equal(hour(2)) || !start.InList() {
		t.Fatalf("Move did not reposition event: %v", start)
	}
	if got := l.OnhandAt(hour(1)); got != 0 {
		t.Errorf("OnhandAt(1) after move = %v, want 0", got)
	}

	if !l.Erase(end) {
		t.Fatal("Erase returned false for stored event")
	}
	if end.InList() {
		t.Error("erased event still reports InList")
	}
	if l.Erase(end) {
		t.Error("second Erase should report false")
	}
	if got := l.OnhandAt(hour(5)); got != 1 {
		t.Errorf("OnhandAt(5) after erase = %v, want 1", got)
	}
}

func TestList_MoveKeepsRank(t *testing.T) {
	var l List[*plan]
	a := NewLoad(hour(1), 1, &plan{"a"})
	b := NewLoad(hour(1), 1, &plan{"b"})
	c := NewLoad(hour(1), 1, &plan{"c"})
	l.Insert(a)
	l.Insert(b)
	l.Insert(c)

	cur := l.At(a)
	l.Move(a, hour(1), 1)
	cur.Next()
	if cur.Event() != b {
		t.Fatalf("cursor after unchanged move = %v, want b", cur.Event())
	}

	var got []*Event[*plan]
	for e := range l.All() {
		got = append(got, e)
	}
	if len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
		t.Errorf("order after move = %v, want a b c", got)
	}
}

func TestList_RemoveKind(t *testing.T) {
	var l List[*plan]
	l.Insert(NewUpdateMaximum[*plan](hour(0), 1))
	l.Insert(NewLoad(hour(1), 1, &plan{"p"}))
	l.Insert(NewUpdateMaximum[*plan](hour(2), 2))

	removed := l.RemoveKind(KindUpdateMaximum)
	if len(removed) != 2 {
		t.Fatalf("removed %d events, want 2", len(removed))
	}
	if l.Count(KindUpdateMaximum) != 0 || l.Len() != 1 {
		t.Errorf("unexpected list after RemoveKind: %v", kinds(&l))
	}
	for _, e := range removed {
		if e.InList() {
			t.Error("removed event still attached")
		}
	}
}

func TestList_PointQueries(t *testing.T) {
	var l List[*plan]
	if _, ok := l.MaxAt(hour(1)); ok {
		t.Error("empty list should have no maximum")
	}
	l.Insert(NewUpdateMaximum[*plan](hour(0), 2))
	l.Insert(NewUpdateMaximum[*plan](hour(4), 5))
	l.Insert(NewUpdateMinimum[*plan](hour(2), 1))

	if v, ok := l.MaxAt(hour(3)); !ok || v != 2 {
		t.Errorf("MaxAt(3) = %v,%v want 2,true", v, ok)
	}
	if v, ok := l.MaxAt(hour(4)); !ok || v != 5 {
		t.Errorf("MaxAt(4) = %v,%v want 5,true", v, ok)
	}
	if _, ok := l.MinAt(hour(1)); ok {
		t.Error("minimum should not be set before hour 2")
	}
	if v, ok := l.MinAt(hour(2)); !ok || v != 1 {
		t.Errorf("MinAt(2) = %v,%v want 1,true", v, ok)
	}
}

func TestCursor_FromDate(t *testing.T) {
	var l List[*plan]
	l.Insert(NewLoad(hour(1), 1, &plan{"a"}))
	l.Insert(NewLoad(hour(3), 1, &plan{"b"}))

	tests := []struct {
		name string
		from time.Time
		want *time.Time
	}{
		{"Before all", hour(0), ptr(hour(1))},
		{"Exact", hour(3), ptr(hour(3))},
		{"Between", hour(2), ptr(hour(3))},
		{"After all", hour(4), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := l.FromDate(tt.from)
			if tt.want == nil {
				if c.Valid() {
					t.Errorf("expected exhausted cursor, got %v", c.Event())
				}
				return
			}
			if !c.Valid() || !c.Event().Date().Equal(*tt.want) {
				t.Errorf("FromDate(%v) at %v, want %v", tt.from, c.Event(), *tt.want)
			}
		})
	}
}

func TestCursor_SurvivesMutation(t *testing.T) {
	var l List[*plan]
	a := NewLoad(hour(1), 1, &plan{"a"})
	b := NewLoad(hour(2), 1, &plan{"b"})
	c := NewLoad(hour(4), 1, &plan{"c"})
	l.Insert(a)
	l.Insert(b)
	l.Insert(c)

	cur := l.At(a)
	// Insert ahead of the cursor and erase its successor while iterating.
	l.Insert(NewLoad(hour(0), 1, &plan{"early"}))
	l.Erase(b)
	cur.Next()
	if cur.Event() != c {
		t.Fatalf("cursor should skip erased event, got %v", cur.Event())
	}

	after := l.After(a)
	if after.Event() != c {
		t.Errorf("After(a) = %v, want c", after.Event())
	}
}

func ptr(t time.Time) *time.Time { return &t }
