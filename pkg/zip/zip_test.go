package zip

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestArchiveAssetsDeduplicatesFilenames(t *testing.T) {
	data, err := ArchiveAssets([]Asset{
		{Filename: "clip.mp4", Data: []byte("one")},
		{Filename: "clip.mp4", Data: []byte("two")},
		{Filename: "photo.jpg", Data: []byte("three")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 3 {
		t.Fatalf("entries = %d, want 3", len(zr.File))
	}

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"clip.mp4", "1_clip.mp4", "photo.jpg"} {
		if !names[want] {
			t.Fatalf("missing entry %q in %v", want, names)
		}
	}
}
