package web

import (
	"bufio"
	"compress/gzip"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-mizu/mizu"
	"github.com/google/uuid"
)

// requestIDMiddleware stamps every request with an X-Request-Id, reusing
// an inbound value if the caller already supplied one.
func requestIDMiddleware(next mizu.Handler) mizu.Handler {
	return func(c *mizu.Ctx) error {
		id := c.Request().Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer().Header().Set("X-Request-Id", id)
		return next(c)
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code for
// the logging middleware, the way middlewares/logger and
// middlewares/responselog in the teacher's pack do it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.(http.Hijacker).Hijack()
}

// loggingMiddleware logs method/path/status/duration/request-id for every
// request, the "tracing" half of spec.md §4.7's cross-cutting dispatch
// concerns (see SPEC_FULL.md's supplemental-features section).
func loggingMiddleware(log *slog.Logger) mizu.Middleware {
	return func(next mizu.Handler) mizu.Handler {
		return func(c *mizu.Ctx) error {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: c.Writer(), status: http.StatusOK}
			c.SetWriter(sw)

			err := next(c)

			log.Info("request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", sw.status,
				"duration", time.Since(start),
				"request_id", sw.Header().Get("X-Request-Id"),
			)
			return err
		}
	}
}

// compressibleContentTypes are the response bodies gzip compression
// applies to: the S3 XML envelopes and the /healthz JSON body. Object
// bytes proxied from the CAS node are never wrapped here - they are
// typically already-compressed or binary, and compressing them would
// break Content-Length-driven range responses (spec.md §4.7's "textual
// payloads" qualifier, detailed in SPEC_FULL.md).
var compressibleContentTypes = []string{"application/xml", "text/xml", "application/json"}

func isCompressibleContentType(contentType string) bool {
	for _, prefix := range compressibleContentTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// gzipResponseWriter defers the compress-or-not decision until the
// handler sets its Content-Type, the same flow middlewares/compress's
// test (New(Options{ContentTypes: ...})) exercises against the teacher's
// router.
type gzipResponseWriter struct {
	http.ResponseWriter
	gw          *gzip.Writer
	wroteHeader bool
	compress    bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		ct := w.Header().Get("Content-Type")
		if w.compress && w.Header().Get("Content-Encoding") == "" && isCompressibleContentType(ct) {
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Del("Content-Length")
			w.gw = gzip.NewWriter(w.ResponseWriter)
		} else {
			w.compress = false
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.gw != nil {
		return w.gw.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipResponseWriter) Close() error {
	if w.gw != nil {
		return w.gw.Close()
	}
	return nil
}

// compressMiddleware gzips textual response bodies when the client
// advertises support for it.
func compressMiddleware(next mizu.Handler) mizu.Handler {
	return func(c *mizu.Ctx) error {
		if !strings.Contains(c.Request().Header.Get("Accept-Encoding"), "gzip") {
			return next(c)
		}
		c.Writer().Header().Set("Vary", "Accept-Encoding")
		gw := &gzipResponseWriter{ResponseWriter: c.Writer(), compress: true}
		c.SetWriter(gw)
		err := next(c)
		gw.Close()
		return err
	}
}

// corsMiddleware allows any origin to issue GET/HEAD requests, exposing
// the headers an S3 client needs to read an object response. No CORS
// library appears anywhere in the corpus, so this is a deliberate
// hand-written ambient concern (see DESIGN.md).
func corsMiddleware(next mizu.Handler) mizu.Handler {
	return func(c *mizu.Ctx) error {
		w := c.Writer().Header()
		w.Set("Access-Control-Allow-Origin", "*")
		w.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, ETag, x-ipfs-path, x-ipfs-roots")
		if c.Request().Method == http.MethodOptions {
			c.Writer().WriteHeader(http.StatusNoContent)
			return nil
		}
		return next(c)
	}
}
