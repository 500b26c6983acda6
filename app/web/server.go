package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-mizu/mizu"

	"github.com/go-mizu/blueprints/casgate/internal/cas"
	"github.com/go-mizu/blueprints/casgate/internal/index"
	"github.com/go-mizu/blueprints/casgate/internal/multipart"
	"github.com/go-mizu/blueprints/casgate/internal/objectsvc"
	"github.com/go-mizu/blueprints/casgate/internal/s3sig"

	s3handler "github.com/go-mizu/blueprints/casgate/app/web/handler/s3"
)

// Server is the gateway's HTTP server: the dispatch layer (C7) wiring
// the index (C1), CAS client (C2), SigV4 verifier (C3), multipart
// registry (C5), object service (C6), and the S3 route handlers
// together behind a mizu.App.
type Server struct {
	app *mizu.App
	cfg Config

	index     *index.Index
	casClient *cas.Client
	log       *slog.Logger
}

// New builds a Server from cfg: it opens the index database and CAS
// client, constructs the object service and route handlers, and
// registers every route.
func New(cfg Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	idx, err := index.Open(context.Background(), cfg.Gateway.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	var casOpts []cas.Option
	if cfg.Gateway.RPCCreds != nil {
		casOpts = append(casOpts, cas.WithCredentials(cas.Credentials{
			Username: cfg.Gateway.RPCCreds.Username,
			Password: cfg.Gateway.RPCCreds.Password,
		}))
	}
	casClient := cas.New(cfg.Gateway.RPCAddress, casOpts...)

	registry := multipart.New(cfg.Gateway.ConcurrentMultipartUpload)

	svc := &objectsvc.Service{
		Index:        idx,
		CAS:          casClient,
		Multipart:    registry,
		FolderPrefix: cfg.Gateway.FolderPrefix,
		AutoMime:     cfg.Gateway.AutoMime,
		TrimEmpty:    cfg.Gateway.TrimEmptyFolders,
		Logger:       log,
	}

	var verifier *s3sig.Verifier
	if cfg.Gateway.Auth != nil {
		verifier = s3sig.New(s3sig.Credentials{
			AccessKey: cfg.Gateway.Auth.AccessKey,
			SecretKey: cfg.Gateway.Auth.SecretKey,
		})
	}

	policy := s3handler.Policy{
		Mode:         s3handler.ParseMode(cfg.Gateway.Mode),
		IPExtraction: s3handler.ParseIPExtraction(cfg.Gateway.IPExtraction),
		PrivateCIDRs: cfg.PrivateCIDRs,
		Gateway:      cfg.Gateway.Gateway,
	}

	h := &s3handler.Handler{Service: svc, Policy: policy, Logger: log}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 3 * time.Second
	}

	s := &Server{
		cfg: cfg,
		app: mizu.New(
			mizu.WithLogger(log),
			mizu.WithShutdownTimeout(shutdownTimeout),
			mizu.WithPreShutdownDelay(0),
		),
		index:     idx,
		casClient: casClient,
		log:       log,
	}

	s.setupRoutes(h, verifier)
	return s, nil
}

func (s *Server) setupRoutes(h *s3handler.Handler, verifier *s3sig.Verifier) {
	s.app.Use(requestIDMiddleware, loggingMiddleware(s.log), corsMiddleware, compressMiddleware)

	s.app.Get("/healthz", s.healthzHandler)

	auth := s3handler.AuthMiddleware(verifier)
	bucket := s.app.With(auth)

	bucket.Get("/{bucket}", h.GetBucket)
	bucket.Get("/{bucket}/", h.GetBucket)
	bucket.Post("/{bucket}", h.ModifyBucket)
	bucket.Post("/{bucket}/", h.ModifyBucket)

	bucket.Put("/{bucket}/{key...}", h.PutObject)
	bucket.Get("/{bucket}/{key...}", h.GetObject)
	bucket.Head("/{bucket}/{key...}", h.HeadObject)
	bucket.Post("/{bucket}/{key...}", h.PostObject)
	bucket.Delete("/{bucket}/{key...}", h.DeleteObject)
}

type healthzResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	DBStatus  string         `json:"db_status"`
	RPCStatus *rpcStatusBody `json:"rpc_status,omitempty"`
	Mode      string         `json:"mode"`
}

type rpcStatusBody struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// healthzHandler reports 200 iff both the index and the CAS node answer,
// per spec.md's supplemental /healthz contract (see SPEC_FULL.md).
func (s *Server) healthzHandler(c *mizu.Ctx) error {
	ctx := c.Context()

	resp := healthzResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DBStatus:  "ok",
		Mode:      s.cfg.Gateway.Mode,
	}
	status := http.StatusOK

	if err := s.index.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.DBStatus = "error"
		status = http.StatusServiceUnavailable
	}

	if v, err := s.casClient.Version(ctx); err != nil {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		resp.RPCStatus = &rpcStatusBody{Version: v.Version, Commit: v.Commit}
	}

	c.Writer().Header().Set("Content-Type", "application/json")
	c.Writer().WriteHeader(status)
	return json.NewEncoder(c.Writer()).Encode(resp)
}

// Serve runs the server on ln — built by the caller so fd-adoption (C9)
// and fresh binds share one code path — until ctx is canceled, then
// drains in-flight requests for up to the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Addr: ln.Addr().String(), Handler: s.app}
	return s.app.ServeContext(ctx, srv, func() error { return srv.Serve(ln) })
}

// Close releases the server's held resources (the index's database
// handle). The CAS client holds no resources beyond an *http.Client.
func (s *Server) Close() error {
	return s.index.Close()
}

// Handler returns the underlying HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}
