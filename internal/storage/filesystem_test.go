package storage

import (
	"context"
	"testing"
)

func TestFileStoreWriteThenRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ctx := context.Background()
	key, err := store.Write(ctx, "resolved/sunset/abc.jpg", []byte("payload"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "resolved/sunset/abc.jpg" {
		t.Fatalf("key = %q", key)
	}

	data, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q", data)
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b/c.jpg", want: "a/b/c.jpg"},
		{in: "/leading/slash.png", want: "leading/slash.png"},
		{in: "./dotted/key.mp4", want: "dotted/key.mp4"},
		{in: "a/../../escape", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("sanitizeKey(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFileStoreReadMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Read(context.Background(), "nope/missing.bin"); err == nil {
		t.Fatal("expected error for missing key")
	}
}
