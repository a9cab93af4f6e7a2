package backend

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/configsync/internal/channel"
	"github.com/dshills/configsync/internal/config/registry"
	"github.com/dshills/configsync/internal/config/watcher"
	"github.com/dshills/configsync/internal/protocol"
)

var _ channel.Backend = (*Service)(nil)

type scannerFunc func(ctx context.Context) ([]protocol.RuntimeInfo, error)

func (f scannerFunc) Scan(ctx context.Context) ([]protocol.RuntimeInfo, error) { return f(ctx) }

func newTestService(t *testing.T, scan scannerFunc) *Service {
	t.Helper()
	reg := registry.NewWithDefaults()
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := OpenFileStore(path, reg.DefaultTree(), WithWatcher(watcher.New(watcher.WithDebounce(20*time.Millisecond))))
	if err != nil {
		t.Fatal(err)
	}
	if scan == nil {
		scan = func(context.Context) ([]protocol.RuntimeInfo, error) { return nil, nil }
	}
	svc := NewService(store, scan, WithServiceRegistry(reg))
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestService_RetrieveConfig(t *testing.T) {
	svc := newTestService(t, nil)

	resp := svc.RetrieveConfig(context.Background())
	if !resp.OK() {
		t.Fatalf("RetrieveConfig failed: %v", resp.Err())
	}
	want := jsonTree(t, registry.NewWithDefaults().DefaultTree())
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Errorf("RetrieveConfig() mismatch (-want +got):\n%s", diff)
	}
}

// jsonTree returns v as it reads back from JSON.
func jsonTree(t *testing.T, v map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestService_RetrieveConfigCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := OpenFileStore(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(store, scannerFunc(func(context.Context) ([]protocol.RuntimeInfo, error) { return nil, nil }))

	resp := svc.RetrieveConfig(context.Background())
	if resp.OK() || resp.Message != MsgRetrieveFailed || resp.Details == "" {
		t.Errorf("response = %+v, want failure with details", resp)
	}
}

func TestService_UpdateConfig(t *testing.T) {
	svc := newTestService(t, nil)

	var events []protocol.PartialUpdate
	remove := svc.OnPartialUpdate(func(u protocol.PartialUpdate) { events = append(events, u) })
	defer remove()

	resp := svc.UpdateConfig(context.Background(), registry.PathPrimaryColor, `"teal"`)
	if !resp.OK() {
		t.Fatalf("UpdateConfig failed: %v", resp.Err())
	}

	want := []protocol.PartialUpdate{{Path: registry.PathPrimaryColor, Value: `"teal"`}}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if raw, _ := svc.store.Raw(registry.PathPrimaryColor); raw != `"teal"` {
		t.Errorf("persisted = %s", raw)
	}
}

func TestService_UpdateConfigRejected(t *testing.T) {
	svc := newTestService(t, nil)

	var events int
	svc.OnPartialUpdate(func(protocol.PartialUpdate) { events++ })

	tests := []struct {
		name  string
		path  string
		value string
	}{
		{"unknown path", "appearance.theme.nope", `1`},
		{"bad enum", registry.PathColorMode, `"sepia"`},
		{"bad colour", registry.PathPrimaryColor, `"#zzzzzz"`},
		{"wrong type", registry.PathColorMode, `true`},
		{"not json", registry.PathColorMode, `dark`},
		{"out of range", "download.transmission.concurrentCount", `512`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := svc.UpdateConfig(context.Background(), tt.path, tt.value)
			if resp.OK() {
				t.Fatal("update should be rejected")
			}
			if resp.Message != MsgUpdateRejected {
				t.Errorf("Message = %q", resp.Message)
			}
		})
	}
	if events != 0 {
		t.Errorf("rejected updates emitted %d events", events)
	}
}

func TestService_OnPartialUpdateOrderAndRemove(t *testing.T) {
	svc := newTestService(t, nil)

	var calls []string
	removeA := svc.OnPartialUpdate(func(protocol.PartialUpdate) { calls = append(calls, "a") })
	svc.OnPartialUpdate(func(protocol.PartialUpdate) { calls = append(calls, "b") })

	svc.UpdateConfig(context.Background(), registry.PathColorMode, `"dark"`)
	removeA()
	removeA()
	svc.UpdateConfig(context.Background(), registry.PathColorMode, `"light"`)

	if diff := cmp.Diff([]string{"a", "b", "b"}, calls); diff != "" {
		t.Errorf("listener calls mismatch (-want +got):\n%s", diff)
	}
	if svc.Listeners() != 1 {
		t.Errorf("Listeners() = %d, want 1", svc.Listeners())
	}
}

func TestService_RetrieveRuntimeList(t *testing.T) {
	list := []protocol.RuntimeInfo{{Name: "jdk-17", MajorVersion: 17, ExecPath: "/opt/jdk-17/bin/java"}}
	svc := newTestService(t, func(context.Context) ([]protocol.RuntimeInfo, error) { return list, nil })

	resp := svc.RetrieveRuntimeList(context.Background())
	if !resp.OK() || len(resp.Data) != 1 {
		t.Errorf("RetrieveRuntimeList = %+v", resp)
	}

	failing := newTestService(t, func(context.Context) ([]protocol.RuntimeInfo, error) {
		return nil, errors.New("permission denied")
	})
	resp = failing.RetrieveRuntimeList(context.Background())
	if resp.OK() || resp.Message != MsgRuntimesFailed || resp.Details != "permission denied" {
		t.Errorf("failed scan response = %+v", resp)
	}
}

func TestService_ExternalEdit(t *testing.T) {
	svc := newTestService(t, nil)

	got := make(chan protocol.PartialUpdate, 8)
	svc.OnPartialUpdate(func(u protocol.PartialUpdate) { got <- u })
	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tree := registry.NewWithDefaults().DefaultTree()
	tree["appearance"].(map[string]any)["theme"].(map[string]any)["colorMode"] = "dark"
	raw, err := json.Marshal(tree)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(svc.store.Path(), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case u := <-got:
		want := protocol.PartialUpdate{Path: registry.PathColorMode, Value: `"dark"`}
		if u != want {
			t.Errorf("event = %+v, want %+v", u, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("external edit was not announced")
	}
}
