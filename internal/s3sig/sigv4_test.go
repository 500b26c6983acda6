package s3sig

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const (
	testAccessKey = "AKIDEXAMPLE"
	testSecretKey = "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"
	testRegion    = "us-east-1"
	testService   = "s3"
	testDate      = "20260101"
	testAmzDate   = "20260101T000000Z"
)

// signHeaderRequest signs req the same way a reference SigV4 client would,
// using the package's own canonicalization helpers (they are pure
// functions of the request) so the test exercises the real
// canonicalization path without duplicating it independently.
func signHeaderRequest(t *testing.T, req *http.Request, signedHeaders []string) {
	t.Helper()
	req.Header.Set("x-amz-date", testAmzDate)

	ar := authRequest{
		accessKey:     testAccessKey,
		date:          testDate,
		region:        testRegion,
		service:       testService,
		signedHeaders: signedHeaders,
		amzDate:       testAmzDate,
		bodyHash:      emptyBodyHash,
	}
	if h := req.Header.Get("x-amz-content-sha256"); h != "" {
		ar.bodyHash = h
	}

	canonical, err := canonicalRequest(req, ar)
	if err != nil {
		t.Fatalf("canonicalRequest: %v", err)
	}
	hashed := sha256.Sum256([]byte(canonical))
	sts := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		testAmzDate,
		testDate + "/" + testRegion + "/" + testService + "/aws4_request",
		hex.EncodeToString(hashed[:]),
	}, "\n")
	key := deriveSigningKey(testSecretKey, testDate, testRegion, testService)
	sig := hex.EncodeToString(hmacSHA256(key, sts))

	req.Header.Set("Authorization",
		"AWS4-HMAC-SHA256 Credential="+testAccessKey+"/"+testDate+"/"+testRegion+"/"+testService+"/aws4_request, "+
			"SignedHeaders="+strings.Join(signedHeaders, ";")+", "+
			"Signature="+sig)
}

func newSignedRequest(t *testing.T) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://example.com/mybucket/mykey", nil)
	req.Host = "example.com"
	signHeaderRequest(t, req, []string{"host", "x-amz-date"})
	return req
}

func TestVerifyAcceptsValidHeaderRequest(t *testing.T) {
	v := New(Credentials{AccessKey: testAccessKey, SecretKey: testSecretKey})
	req := newSignedRequest(t)
	if err := v.Verify(req); err != nil {
		t.Fatalf("expected valid request to verify, got %v", err)
	}
}

func TestVerifyRejectsFlippedSignatureNibble(t *testing.T) {
	v := New(Credentials{AccessKey: testAccessKey, SecretKey: testSecretKey})
	req := newSignedRequest(t)

	auth := req.Header.Get("Authorization")
	flipped := flipLastHexNibble(auth)
	req.Header.Set("Authorization", flipped)

	if err := v.Verify(req); err == nil {
		t.Fatal("expected flipped signature to be rejected")
	}
}

func TestVerifyRejectsTamperedHeader(t *testing.T) {
	v := New(Credentials{AccessKey: testAccessKey, SecretKey: testSecretKey})
	req := newSignedRequest(t)
	req.Host = "attacker.example.com"

	if err := v.Verify(req); err == nil {
		t.Fatal("expected tampered host to be rejected")
	}
}

func TestVerifyRejectsTamperedQuery(t *testing.T) {
	v := New(Credentials{AccessKey: testAccessKey, SecretKey: testSecretKey})
	req := newSignedRequest(t)
	req.URL.RawQuery = "evil=1"

	if err := v.Verify(req); err == nil {
		t.Fatal("expected tampered query to be rejected")
	}
}

func TestVerifyPresignedQueryVariant(t *testing.T) {
	v := New(Credentials{AccessKey: testAccessKey, SecretKey: testSecretKey})

	req := httptest.NewRequest(http.MethodGet, "http://example.com/mybucket/mykey", nil)
	req.Host = "example.com"
	signedHeaders := []string{"host"}

	// Every presigning parameter except x-amz-signature is part of the
	// canonical query string, so they are set before signing.
	q := req.URL.Query()
	q.Set("x-amz-credential", testAccessKey+"/"+testDate+"/"+testRegion+"/"+testService+"/aws4_request")
	q.Set("x-amz-signedheaders", strings.Join(signedHeaders, ";"))
	q.Set("x-amz-date", testAmzDate)
	req.URL.RawQuery = q.Encode()

	ar := authRequest{
		accessKey:     testAccessKey,
		date:          testDate,
		region:        testRegion,
		service:       testService,
		signedHeaders: signedHeaders,
		amzDate:       testAmzDate,
		bodyHash:      unsignedPayload,
	}
	canonical, err := canonicalRequest(req, ar)
	if err != nil {
		t.Fatalf("canonicalRequest: %v", err)
	}
	hashed := sha256.Sum256([]byte(canonical))
	sts := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		testAmzDate,
		testDate + "/" + testRegion + "/" + testService + "/aws4_request",
		hex.EncodeToString(hashed[:]),
	}, "\n")
	key := deriveSigningKey(testSecretKey, testDate, testRegion, testService)
	sig := hex.EncodeToString(hmacSHA256(key, sts))

	q.Set("x-amz-signature", sig)
	req.URL.RawQuery = q.Encode()

	if err := v.Verify(req); err != nil {
		t.Fatalf("expected valid presigned request to verify, got %v", err)
	}

	// Tampering with the path after signing must invalidate it.
	tampered := req.Clone(req.Context())
	tampered.URL.Path = "/mybucket/otherkey"
	if err := v.Verify(tampered); err == nil {
		t.Fatal("expected tampered path to be rejected")
	}
}

func TestVerifyStreamingPayloadUnwrapsBody(t *testing.T) {
	v := New(Credentials{AccessKey: testAccessKey, SecretKey: testSecretKey})

	sig := strings.Repeat("a", 64)
	chunked := "3;chunk-signature=" + sig + "\r\nfoo\r\n" +
		"0;chunk-signature=" + sig + "\r\n\r\n"

	req := httptest.NewRequest(http.MethodPut, "http://example.com/mybucket/mykey", strings.NewReader(chunked))
	req.Host = "example.com"
	req.Header.Set("x-amz-content-sha256", streamingPayload)
	signHeaderRequest(t, req, []string{"host", "x-amz-content-sha256", "x-amz-date"})

	if err := v.Verify(req); err != nil {
		t.Fatalf("expected valid streaming request to verify, got %v", err)
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read unwrapped body: %v", err)
	}
	if string(body) != "foo" {
		t.Fatalf("expected unwrapped body 'foo', got %q", body)
	}
}

func flipLastHexNibble(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		switch {
		case c >= '0' && c <= '8':
			return s[:i] + string(c+1) + s[i+1:]
		case c == '9':
			return s[:i] + "a" + s[i+1:]
		case c >= 'a' && c <= 'e':
			return s[:i] + string(c+1) + s[i+1:]
		case c == 'f':
			return s[:i] + "0" + s[i+1:]
		}
	}
	return s
}
