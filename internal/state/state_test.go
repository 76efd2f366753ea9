package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alfredjeanlab/evcollect/internal/model"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	bs, err := OpenBolt(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { bs.Close() })
	return map[string]Store{
		"file": NewFileStore(filepath.Join(dir, "state.json")),
		"bolt": bs,
	}
}

func TestStore_ReadMissing(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			st, err := s.Read(context.Background())
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if st.LastEventTime != nil || st.APIToken != nil {
				t.Errorf("Read() = %+v, want zero state", st)
			}
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := model.State{}.WithRun("tok-1", "2024-03-01T10:00:00.000Z")
			if err := s.Write(ctx, want); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := s.Read(ctx)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got.Token() != "tok-1" || got.Watermark() != "2024-03-01T10:00:00.000Z" {
				t.Errorf("Read() = token %q watermark %q", got.Token(), got.Watermark())
			}

			// A second write replaces the first.
			if err := s.Write(ctx, want.WithRun("tok-2", "2024-03-02T00:00:00Z")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err = s.Read(ctx)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got.Token() != "tok-2" || got.Watermark() != "2024-03-02T00:00:00Z" {
				t.Errorf("Read() after overwrite = token %q watermark %q", got.Token(), got.Watermark())
			}
		})
	}
}

func TestFileStore_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewFileStore(path)
	if err := s.Write(context.Background(), model.State{}.WithRun("abc", "2024-01-01")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"last_event_time":"2024-01-01","api_token":"abc"}` {
		t.Errorf("state file = %s", data)
	}
}

func TestFileStore_ReadsNulls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"last_event_time": null, "api_token": "tok"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := NewFileStore(path).Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if st.LastEventTime != nil || st.Token() != "tok" {
		t.Errorf("Read() = %+v", st)
	}
}

func TestFileStore_ReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Read(context.Background()); err == nil {
		t.Fatal("expected error for corrupt state file")
	}
}

func TestBoltStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	if err := s.Write(context.Background(), model.State{}.WithRun("tok", "w")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	st, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if st.Token() != "tok" || st.Watermark() != "w" {
		t.Errorf("Read() = %+v", st)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("file", filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("Open(file) error = %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("Open(file) = %T, want *FileStore", s)
	}

	s, err = Open("bolt", filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("Open(bolt) error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*BoltStore); !ok {
		t.Errorf("Open(bolt) = %T, want *BoltStore", s)
	}

	if _, err := Open("redis", "x"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestStore_KeepsUnknownKeys(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed := model.State{Extra: map[string]json.RawMessage{"owner": json.RawMessage(`"ops"`)}}
			if err := s.Write(ctx, seed); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			got, err := s.Read(ctx)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if err := s.Write(ctx, got.WithRun("tok", "T1")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			got, err = s.Read(ctx)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if string(got.Extra["owner"]) != `"ops"` || got.Watermark() != "T1" {
				t.Errorf("Read() = %+v", got)
			}
		})
	}
}

func TestFileStore_KeepsKeysFromOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"last_event_time": "T0", "api_token": null, "comment": "hand edited"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)
	st, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if err := s.Write(context.Background(), st.WithRun("abc", "T1")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"last_event_time":"T1","api_token":"abc","comment":"hand edited"}`; string(data) != want {
		t.Errorf("state file = %s, want %s", data, want)
	}
}
