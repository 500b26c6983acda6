package s3sig

import (
	"io"
	"strings"
	"testing"
)

func TestChunkReaderUnwrapsFrames(t *testing.T) {
	sig := strings.Repeat("a", 64)
	body := "3;chunk-signature=" + sig + "\r\nfoo\r\n" +
		"5;chunk-signature=" + sig + "\r\nhello\r\n" +
		"0;chunk-signature=" + sig + "\r\n\r\n"

	r := NewChunkReader(io.NopCloser(strings.NewReader(body)))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(out) != "foohello" {
		t.Fatalf("expected 'foohello', got %q", out)
	}
}

func TestChunkReaderEmptyStream(t *testing.T) {
	sig := strings.Repeat("0", 64)
	body := "0;chunk-signature=" + sig + "\r\n\r\n"

	r := NewChunkReader(io.NopCloser(strings.NewReader(body)))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestChunkReaderMalformedSize(t *testing.T) {
	r := NewChunkReader(io.NopCloser(strings.NewReader("zz;chunk-signature=" + strings.Repeat("a", 64) + "\r\n")))
	_, err := io.ReadAll(r)
	if err == nil {
		t.Fatal("expected error for malformed chunk size")
	}
}
