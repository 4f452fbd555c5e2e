package fileid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBookID(t *testing.T) {
	id1, err := BookID("/books/saga.pdf")
	if err != nil {
		t.Fatal(err)
	}
	id2, _ := BookID("/books/saga.pdf")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, bookPrefix) {
		t.Errorf("ID should have prefix %q: got %q", bookPrefix, id1)
	}
	if len(id1) != len(bookPrefix)+idHexLen {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestBookID_differentPaths(t *testing.T) {
	id1, _ := BookID("/books/saga.pdf")
	id2, _ := BookID("/books/epilogue.pdf")
	if id1 == id2 {
		t.Errorf("different paths should give different IDs: %q", id1)
	}
}

func TestBookID_normalized(t *testing.T) {
	id1, _ := BookID("/books/saga.pdf")
	id2, _ := BookID("/books/./saga.pdf")
	id3, _ := BookID("/books/extra/../saga.pdf")
	if id1 != id2 || id1 != id3 {
		t.Errorf("equivalent paths should match: %q %q %q", id1, id2, id3)
	}
}

func TestBookID_relative(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	rel, _ := BookID("saga.pdf")
	abs, _ := BookID(filepath.Join(wd, "saga.pdf"))
	if rel != abs {
		t.Errorf("relative and absolute path should match: %q vs %q", rel, abs)
	}
}

func TestTextBookID(t *testing.T) {
	a := TextBookID("Saga", "Once upon a time.")
	if a != TextBookID("Saga", "Once upon a time.") {
		t.Error("TextBookID should be deterministic")
	}
	if a == TextBookID("Saga", "Once upon another time.") {
		t.Error("different text should give different IDs")
	}
	if a == TextBookID("Sag", "aOnce upon a time.") {
		t.Error("title/text boundary should be part of the ID")
	}
	if !strings.HasPrefix(a, textPrefix) {
		t.Errorf("expected prefix %q: %q", textPrefix, a)
	}
}
