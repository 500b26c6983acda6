// Package objectsvc is the object service (C6): PUT/GET/HEAD/DELETE and
// bulk-delete orchestration, CID reference counting, orphan unpin, and
// the background directory trimmer. It is the glue between C1 (index),
// C2 (CAS client), C4 (path normalizer) and C5 (multipart registry).
package objectsvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-mizu/blueprints/casgate/internal/cas"
	"github.com/go-mizu/blueprints/casgate/internal/contenttype"
	"github.com/go-mizu/blueprints/casgate/internal/index"
	"github.com/go-mizu/blueprints/casgate/internal/multipart"
	"github.com/go-mizu/blueprints/casgate/internal/pathutil"
	"github.com/go-mizu/blueprints/casgate/internal/random"
)

// Sentinel errors the HTTP layer maps to status codes per spec.md §7.
var (
	ErrNotFound        = errors.New("objectsvc: object not found")
	ErrBadRequest      = errors.New("objectsvc: malformed request")
	ErrUploadNotFound  = errors.New("objectsvc: upload not found")
	ErrCapacity        = errors.New("objectsvc: multipart capacity exhausted")
)

// Service implements the object lifecycle described in spec.md §4.6.
type Service struct {
	Index        *index.Index
	CAS          *cas.Client
	Multipart    *multipart.Registry
	FolderPrefix string
	AutoMime     bool
	TrimEmpty    bool
	Logger       *slog.Logger
}

// PutResult is what PutObject (and, by extension, CompleteMultipartUpload)
// hands back to the HTTP layer to build response headers.
type PutResult struct {
	CID  string
	Size int64
}

// PutObject implements spec.md §4.6's PutObject sequence: normalize path,
// read previous metadata, add to CAS and MFS-copy, upsert the index,
// schedule an asynchronous orphan unpin if the CID changed.
func (s *Service) PutObject(ctx context.Context, bucket, key string, body io.Reader, headerContentType string) (*PutResult, error) {
	mfsPath, err := pathutil.Normalize(s.FolderPrefix, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	old, err := s.Index.Get(ctx, bucket, key)
	if err != nil && !errors.Is(err, index.ErrNotFound) {
		return nil, fmt.Errorf("objectsvc: lookup previous metadata: %w", err)
	}

	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrBadRequest, err)
	}

	cid, err := s.CAS.Add(ctx, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("objectsvc: cas add: %w", err)
	}
	if err := s.CAS.FilesCp(ctx, cid, mfsPath); err != nil {
		return nil, fmt.Errorf("objectsvc: cas files_cp: %w", err)
	}

	contentType := contenttype.Resolve(headerContentType, key, s.AutoMime)
	if err := s.Index.Upsert(ctx, bucket, key, cid, int64(len(buf)), contentType); err != nil {
		return nil, fmt.Errorf("objectsvc: upsert: %w", err)
	}

	// Safe to run after the row commits: the new CID's ref count is >= 1
	// even if old.CID == cid, so a same-CID overwrite never races itself
	// into an unpin. spec.md §9's "Orphan unpin after overwrite runs
	// asynchronously" note.
	if old != nil && old.CID != cid {
		go func() {
			bgCtx := context.Background()
			if err := s.unpinIfOrphan(bgCtx, old.CID); err != nil {
				s.logger().Error("async unpin failed", "cid", old.CID, "error", err)
			}
		}()
	}

	return &PutResult{CID: cid, Size: int64(len(buf))}, nil
}

// UploadPart records part bytes under an in-flight multipart upload.
func (s *Service) UploadPart(uploadID string, partNumber int8, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("%w: read part body: %v", ErrBadRequest, err)
	}
	if err := s.Multipart.PutPart(uploadID, partNumber, data); err != nil {
		if errors.Is(err, multipart.ErrNotFound) {
			return ErrUploadNotFound
		}
		return err
	}
	return nil
}

// CreateMultipartUpload reserves a new upload slot and returns its id.
func (s *Service) CreateMultipartUpload() (string, error) {
	id := random.UploadID()
	if err := s.Multipart.Create(id); err != nil {
		if errors.Is(err, multipart.ErrCapacityExceeded) {
			return "", ErrCapacity
		}
		return "", err
	}
	return id, nil
}

// CompleteMultipartUpload concatenates the upload's parts in ascending
// order and synthesizes a PutObject against (bucket, key).
func (s *Service) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string) (*PutResult, error) {
	data, err := s.Multipart.Complete(uploadID)
	if err != nil {
		if errors.Is(err, multipart.ErrNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return s.PutObject(ctx, bucket, key, bytes.NewReader(data), "")
}

// AbortMultipartUpload discards the upload, if present. Unconditionally
// succeeds per spec.md §4.6.
func (s *Service) AbortMultipartUpload(uploadID string) {
	s.Multipart.Abort(uploadID)
}

// GetObject returns the metadata for (bucket, key), for the HTTP layer to
// dispatch through C8 (proxy/redirect/auto).
func (s *Service) GetObject(ctx context.Context, bucket, key string) (*index.Metadata, error) {
	m, err := s.Index.Get(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("objectsvc: lookup: %w", err)
	}
	return m, nil
}

// HeadObject is the same lookup as GetObject; the HTTP layer decides
// whether to stream a body.
func (s *Service) HeadObject(ctx context.Context, bucket, key string) (*index.Metadata, error) {
	return s.GetObject(ctx, bucket, key)
}

// Cat streams the bytes for cid from the CAS node, for a proxy-mode
// GetObject response.
func (s *Service) Cat(ctx context.Context, cid string) (io.ReadCloser, error) {
	return s.CAS.Cat(ctx, cid)
}

// DeleteObject implements spec.md §4.6's DeleteObject sequence: look up
// metadata, remove the MFS entry, delete the index row, unpin if orphaned,
// and (if enabled) kick off a background directory trim. It returns the
// deleted row's metadata so the caller can echo its CID in response
// headers.
func (s *Service) DeleteObject(ctx context.Context, bucket, key string) (*index.Metadata, error) {
	m, err := s.Index.Get(ctx, bucket, key)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("objectsvc: lookup: %w", err)
	}

	mfsPath, err := pathutil.Normalize(s.FolderPrefix, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := s.CAS.FilesRm(ctx, mfsPath); err != nil {
		return nil, fmt.Errorf("objectsvc: cas files_rm: %w", err)
	}
	if err := s.Index.Delete(ctx, bucket, key); err != nil {
		return nil, fmt.Errorf("objectsvc: delete row: %w", err)
	}
	if err := s.unpinIfOrphan(ctx, m.CID); err != nil {
		return nil, fmt.Errorf("objectsvc: unpin: %w", err)
	}

	if s.TrimEmpty {
		go s.trimEmptyAncestor(context.Background(), bucket, key)
	}

	return m, nil
}

// DeleteObjects is the bulk-delete orchestration: each key runs through
// DeleteObject sequentially, its outcome recorded as deleted or errored.
func (s *Service) DeleteObjects(ctx context.Context, bucket string, keys []string) (deleted []string, failed map[string]error) {
	failed = make(map[string]error)
	for _, key := range keys {
		if _, err := s.DeleteObject(ctx, bucket, key); err != nil {
			failed[key] = err
			continue
		}
		deleted = append(deleted, key)
	}
	return deleted, failed
}

// unpinIfOrphan implements spec.md §4.6: query the live reference count
// for cid; if zero, unpin it on the CAS node. The CID reference counter
// IS the index (spec.md §9) — there is no separate counter to diverge.
func (s *Service) unpinIfOrphan(ctx context.Context, cid string) error {
	count, err := s.Index.CIDRefCount(ctx, cid)
	if err != nil {
		return fmt.Errorf("cid_ref_count: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := s.CAS.PinRm(ctx, cid); err != nil {
		return fmt.Errorf("pin_rm: %w", err)
	}
	return nil
}

// trimEmptyAncestor finds the shallowest now-empty ancestor directory of
// key and removes it from the MFS tree. Errors are logged and swallowed:
// spec.md §7 treats directory-trim failures as cleanup that retry cannot
// help with.
func (s *Service) trimEmptyAncestor(ctx context.Context, bucket, key string) {
	ancestor, err := s.Index.FindShallowestEmptyAncestor(ctx, bucket, key)
	if err != nil {
		s.logger().Error("directory trim: ancestor scan failed", "bucket", bucket, "key", key, "error", err)
		return
	}
	if ancestor == "" {
		return
	}

	mfsPath, err := pathutil.Normalize(s.FolderPrefix, bucket, ancestor)
	if err != nil {
		s.logger().Error("directory trim: normalize failed", "bucket", bucket, "ancestor", ancestor, "error", err)
		return
	}
	if err := s.CAS.FilesRm(ctx, mfsPath); err != nil {
		s.logger().Error("directory trim: files_rm failed", "path", mfsPath, "error", err)
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
