package cas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAdd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/add") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Hash":"bafytest123","Size":"5"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	cid, err := c.Add(context.Background(), strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cid != "bafytest123" {
		t.Fatalf("unexpected cid: %s", cid)
	}
}

func TestFilesCpSendsForceAndParents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("parents") != "true" || q.Get("force") != "true" {
			t.Fatalf("expected parents=true&force=true, got %s", r.URL.RawQuery)
		}
		if q.Get("arg") != "/ipfs/bafytest123" {
			t.Fatalf("unexpected src arg: %v", q["arg"])
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.FilesCp(context.Background(), "bafytest123", "/buckets/b1/k"); err != nil {
		t.Fatalf("FilesCp: %v", err)
	}
}

func TestCatReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("object bytes"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	rc, err := c.Cat(context.Background(), "bafytest123")
	if err != nil {
		t.Fatalf("Cat: %v", err)
	}
	defer rc.Close()

	buf := make([]byte, 32)
	n, _ := rc.Read(buf)
	if string(buf[:n]) != "object bytes" {
		t.Fatalf("unexpected body: %s", buf[:n])
	}
}

func TestErrorOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Version(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var rpcErr *Error
	if !asRPCError(err, &rpcErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if rpcErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rpcErr.Status)
	}
}

func asRPCError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestCredentialsSetBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "op" || pass != "secret" {
			t.Fatalf("expected basic auth op:secret, got %s:%s ok=%v", user, pass, ok)
		}
		w.Write([]byte(`{"Version":"0.1","Commit":"abc"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithCredentials(Credentials{Username: "op", Password: "secret"}))
	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Version != "0.1" {
		t.Fatalf("unexpected version: %+v", v)
	}
}
