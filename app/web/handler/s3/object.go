package s3

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-mizu/mizu"

	"github.com/go-mizu/blueprints/casgate/internal/index"
	"github.com/go-mizu/blueprints/casgate/internal/objectsvc"
)

// PutObject answers PUT /{bucket}/{key}. When the request carries
// uploadId and partNumber query parameters it re-routes to UploadPart,
// per spec.md §4.6.
func (h *Handler) PutObject(c *mizu.Ctx) error {
	q := c.QueryValues()
	if uploadID := q.Get("uploadId"); uploadID != "" {
		return h.uploadPart(c, uploadID, q.Get("partNumber"))
	}

	bucket, key := c.Param("bucket"), c.Param("key")
	contentType := c.Request().Header.Get("Content-Type")

	res, err := h.Service.PutObject(c.Context(), bucket, key, c.Request().Body, contentType)
	if err != nil {
		h.logger().Error("put object failed", "bucket", bucket, "key", key, "error", err)
		writeError(c.Writer(), err)
		return nil
	}

	w := c.Writer().Header()
	w.Set("Content-Length", "0")
	w.Set("ETag", etagValue(res.CID))
	w.Set("x-ipfs-roots", res.CID)
	w.Set("x-ipfs-path", "/ipfs/"+res.CID)
	c.Writer().WriteHeader(http.StatusOK)
	return nil
}

func (h *Handler) uploadPart(c *mizu.Ctx, uploadID, partNumberStr string) error {
	partNumber, err := strconv.ParseInt(partNumberStr, 10, 8)
	if err != nil || partNumber < 1 {
		c.Writer().WriteHeader(http.StatusBadRequest)
		return nil
	}

	if err := h.Service.UploadPart(uploadID, int8(partNumber), c.Request().Body); err != nil {
		h.logger().Warn("upload part failed", "upload_id", uploadID, "error", err)
		writeError(c.Writer(), err)
		return nil
	}
	c.Writer().WriteHeader(http.StatusOK)
	return nil
}

// GetObject answers GET /{bucket}/{key}, dispatching through C8.
func (h *Handler) GetObject(c *mizu.Ctx) error {
	bucket, key := c.Param("bucket"), c.Param("key")

	m, err := h.Service.GetObject(c.Context(), bucket, key)
	if err != nil {
		h.writeLookupError(c, bucket, key, err)
		return nil
	}

	setCommonObjectHeaders(c, m)

	if h.Policy.ShouldProxy(c.Request()) {
		rc, err := h.Service.Cat(c.Context(), m.CID)
		if err != nil {
			h.logger().Error("cat failed", "cid", m.CID, "error", err)
			c.Writer().WriteHeader(http.StatusInternalServerError)
			return nil
		}
		defer rc.Close()
		c.Writer().WriteHeader(http.StatusOK)
		_, copyErr := io.Copy(c.Writer(), rc)
		return copyErr
	}

	c.Writer().Header().Set("Location", h.Policy.RedirectLocation(m.CID))
	c.Writer().WriteHeader(http.StatusTemporaryRedirect)
	return nil
}

// HeadObject answers HEAD /{bucket}/{key}: the same lookup as GetObject,
// with Content-Length and no body.
func (h *Handler) HeadObject(c *mizu.Ctx) error {
	bucket, key := c.Param("bucket"), c.Param("key")

	m, err := h.Service.HeadObject(c.Context(), bucket, key)
	if err != nil {
		h.writeLookupError(c, bucket, key, err)
		return nil
	}

	setCommonObjectHeaders(c, m)
	c.Writer().Header().Set("Content-Length", strconv.FormatInt(m.Size, 10))
	c.Writer().WriteHeader(http.StatusOK)
	return nil
}

// DeleteObject answers DELETE /{bucket}/{key}. With an uploadId query
// parameter it delegates to AbortMultipartUpload per spec.md §4.6.
func (h *Handler) DeleteObject(c *mizu.Ctx) error {
	if uploadID := c.QueryValues().Get("uploadId"); uploadID != "" {
		h.Service.AbortMultipartUpload(uploadID)
		c.Writer().WriteHeader(http.StatusNoContent)
		return nil
	}

	bucket, key := c.Param("bucket"), c.Param("key")
	m, err := h.Service.DeleteObject(c.Context(), bucket, key)
	if err != nil {
		h.writeLookupError(c, bucket, key, err)
		return nil
	}

	c.Writer().Header().Set("x-ipfs-path", "/ipfs/"+m.CID)
	c.Writer().Header().Set("x-ipfs-roots", m.CID)
	c.Writer().WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) writeLookupError(c *mizu.Ctx, bucket, key string, err error) {
	if !errors.Is(err, objectsvc.ErrNotFound) {
		h.logger().Error("object lookup failed", "bucket", bucket, "key", key, "error", err)
	}
	writeError(c.Writer(), err)
}

func setCommonObjectHeaders(c *mizu.Ctx, m *index.Metadata) {
	w := c.Writer().Header()
	w.Set("ETag", etagValue(m.CID))
	w.Set("Cache-Control", "public, max-age=29030400, immutable")
	w.Set("Last-Modified", m.UpdatedAt.UTC().Format(time.RFC1123))
	w.Set("x-ipfs-path", "/ipfs/"+m.CID)
	w.Set("x-ipfs-roots", m.CID)
	w.Set("Content-Type", m.ContentType)
}

// etagValue formats a CID as a weak ETag, exactly as the prototype's
// etag_value() helper does — not a plain quoted ETag.
func etagValue(cid string) string {
	return "W/" + cid
}
