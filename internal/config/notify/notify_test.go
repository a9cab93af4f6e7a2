package notify

import (
	"sync/atomic"
	"testing"
)

func TestChangeType_String(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeSet, "set"},
		{ChangeReload, "reload"},
		{ChangeType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.ct.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.ct, got, tt.want)
		}
	}
}

func TestChange_Affects(t *testing.T) {
	tests := []struct {
		change Change
		path   string
		want   bool
	}{
		{Change{Path: "appearance.theme.colorMode"}, "appearance.theme.colorMode", true},
		{Change{Path: "appearance.theme.colorMode"}, "appearance.theme", true},
		{Change{Path: "appearance.theme"}, "appearance.theme.colorMode", true},
		{Change{Path: "appearance"}, "appearance.theme.colorMode", true},
		{Change{Path: "appearance.theme.primaryColor"}, "appearance.theme.colorMode", false},
		{Change{Path: "appearance.themes"}, "appearance.theme", false},
		{Change{Path: "general.general.language"}, "appearance", false},
		{Change{Type: ChangeReload}, "anything", true},
	}

	for _, tt := range tests {
		if got := tt.change.Affects(tt.path); got != tt.want {
			t.Errorf("Change{%q}.Affects(%q) = %v, want %v", tt.change.Path, tt.path, got, tt.want)
		}
	}
}

func TestNotifier_Subscribe(t *testing.T) {
	n := New()
	defer n.Close()

	var received atomic.Bool
	sub := n.Subscribe(func(change Change) {
		received.Store(true)
	})

	n.Notify(Change{Path: "test", Type: ChangeSet})
	if !received.Load() {
		t.Error("observer did not receive notification")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	received.Store(false)
	n.Notify(Change{Path: "test2", Type: ChangeSet})
	if received.Load() {
		t.Error("unsubscribed observer received notification")
	}
	if n.Len() != 0 {
		t.Errorf("Len() = %d after unsubscribe, want 0", n.Len())
	}
}

func TestNotifier_SubscribePath(t *testing.T) {
	n := New()
	defer n.Close()

	var modeChanges, generalChanges atomic.Int32

	n.SubscribePath("appearance.theme.colorMode", func(change Change) {
		modeChanges.Add(1)
	})
	n.SubscribePath("general", func(change Change) {
		generalChanges.Add(1)
	})

	n.NotifySet("appearance.theme.colorMode", "light", "dark", SourceRemote)
	n.NotifySet("appearance.theme", nil, map[string]any{"colorMode": "system"}, SourceRemote)
	n.NotifySet("appearance.theme.primaryColor", "blue", "teal", SourceRemote)
	n.NotifySet("general.general.language", "en", "fr", SourceRemote)

	if got := modeChanges.Load(); got != 2 {
		t.Errorf("colorMode observer received %d changes, want 2", got)
	}
	if got := generalChanges.Load(); got != 1 {
		t.Errorf("general observer received %d changes, want 1", got)
	}
}

func TestNotifier_NotifySet(t *testing.T) {
	n := New()
	defer n.Close()

	var received Change
	n.Subscribe(func(change Change) {
		received = change
	})

	n.NotifySet("appearance.theme.primaryColor", "blue", "teal", SourceLocal)

	if received.Path != "appearance.theme.primaryColor" {
		t.Errorf("Path = %q", received.Path)
	}
	if received.Type != ChangeSet {
		t.Errorf("Type = %v, want ChangeSet", received.Type)
	}
	if received.OldValue != "blue" || received.NewValue != "teal" {
		t.Errorf("values = %v -> %v", received.OldValue, received.NewValue)
	}
	if received.Source != SourceLocal {
		t.Errorf("Source = %q, want local", received.Source)
	}
}

func TestNotifier_NotifyReload(t *testing.T) {
	n := New()
	defer n.Close()

	var global, path atomic.Int32
	n.Subscribe(func(change Change) { global.Add(1) })
	n.SubscribePath("appearance.theme.colorMode", func(change Change) {
		if change.Type != ChangeReload {
			t.Errorf("Type = %v, want reload", change.Type)
		}
		path.Add(1)
	})

	n.NotifyReload(SourceRetrieve)

	if global.Load() != 1 || path.Load() != 1 {
		t.Errorf("reload delivered global=%d path=%d, want 1 and 1", global.Load(), path.Load())
	}
}

func TestNotifier_DeliveryOrder(t *testing.T) {
	n := New()
	defer n.Close()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		if i%2 == 0 {
			n.Subscribe(func(Change) { order = append(order, i) })
		} else {
			n.SubscribePath("a", func(Change) { order = append(order, i) })
		}
	}

	n.NotifySet("a.b", nil, 1, SourceRemote)

	for i, v := range order {
		if v != i {
			t.Fatalf("delivery order = %v, want subscription order", order)
		}
	}
}

func TestNotifier_UnsubscribeDuringDelivery(t *testing.T) {
	n := New()

	var calls []string
	var second *Subscription
	n.Subscribe(func(Change) {
		calls = append(calls, "first")
		second.Unsubscribe()
	})
	second = n.Subscribe(func(Change) { calls = append(calls, "second") })

	n.NotifySet("x", nil, 1, SourceRemote)
	n.NotifySet("x", 1, 2, SourceRemote)

	want := []string{"first", "second", "first"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestNotifier_CloseIdempotent(t *testing.T) {
	n := New()
	n.Close()
	n.Close()

	var called atomic.Bool
	n.Subscribe(func(Change) { called.Store(true) })
	n.NotifySet("x", nil, 1, SourceRemote)

	if called.Load() {
		t.Error("closed notifier should not deliver")
	}
}
