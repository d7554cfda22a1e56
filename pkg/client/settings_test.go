package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")

	if diff := cmp.Diff(DefaultSettings(), LoadSettings(path)); diff != "" {
		t.Errorf("missing file should give defaults (-want +got):\n%s", diff)
	}

	s := &Settings{Addr: "quiz.example:13000", Username: "alice", Cipher: "xchacha20poly1305"}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if diff := cmp.Diff(s, LoadSettings(path)); diff != "" {
		t.Errorf("LoadSettings mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("username: bob\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got := LoadSettings(path)
	want := DefaultSettings()
	want.Username = "bob"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadSettings mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(path, []byte("addr: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultSettings(), LoadSettings(path)); diff != "" {
		t.Errorf("broken file should give defaults (-want +got):\n%s", diff)
	}
}
