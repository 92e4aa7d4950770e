package upload_test

import (
	"testing"

	"ragstream/internal/ui/views/upload"
)

func TestNormalizeDroppedPath(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"  /home/me/notes.md \n":        "/home/me/notes.md",
		"'/home/me/My Notes.md'":        "/home/me/My Notes.md",
		`"/tmp/a b.txt"`:                "/tmp/a b.txt",
		`/home/me/My\ Notes.md`:         "/home/me/My Notes.md",
		"file:///home/me/My%20Notes.md": "/home/me/My Notes.md",
		"":                              "",
	}
	for in, want := range cases {
		if got := upload.NormalizeDroppedPath(in); got != want {
			t.Fatalf("NormalizeDroppedPath(%q) = %q, want %q", in, got, want)
		}
	}
}
