package diag

import (
	"bytes"
	"testing"
)

func TestPrintFormatsTagAndPairs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "node")
	l.Print("received", "frame", "on", "len", "2")
	l.Print("bare", "flag")

	want := "[node] received frame=on len=2\r\n[node] bare flag\r\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	l.Print("nothing", "k", "v")
	if l.With("x") != nil {
		t.Fatal("With on nil logger should stay nil")
	}
}

func TestWithSharesWriter(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "node").With("radio").Print("up")
	if buf.String() != "[radio] up\r\n" {
		t.Fatalf("got %q", buf.String())
	}
}
