package s3

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"

	"github.com/go-mizu/mizu"

	"github.com/go-mizu/blueprints/casgate/internal/objectsvc"
)

// PostObject answers POST /{bucket}/{key}: CreateMultipartUpload (?uploads)
// or CompleteMultipartUpload (?uploadId), per spec.md §4.6.
func (h *Handler) PostObject(c *mizu.Ctx) error {
	q := c.QueryValues()
	bucket, key := c.Param("bucket"), c.Param("key")

	if _, ok := q["uploads"]; ok {
		return h.createMultipartUpload(c, bucket, key)
	}
	if uploadID := q.Get("uploadId"); uploadID != "" {
		return h.completeMultipartUpload(c, bucket, key, uploadID)
	}

	c.Writer().WriteHeader(http.StatusNotImplemented)
	return nil
}

func (h *Handler) createMultipartUpload(c *mizu.Ctx, bucket, key string) error {
	uploadID, err := h.Service.CreateMultipartUpload()
	if err != nil {
		h.logger().Warn("create multipart upload failed", "bucket", bucket, "key", key, "error", err)
		writeError(c.Writer(), err)
		return nil
	}

	c.Writer().Header().Set("Content-Type", "text/xml")
	c.Writer().WriteHeader(http.StatusOK)
	io.WriteString(c.Writer(), xmlHeader)
	return xml.NewEncoder(c.Writer()).Encode(InitiateMultipartUploadResult{
		Xmlns:    "http://s3.amazonaws.com/doc/2006-03-01/",
		Bucket:   bucket,
		Key:      key,
		UploadID: uploadID,
	})
}

func (h *Handler) completeMultipartUpload(c *mizu.Ctx, bucket, key, uploadID string) error {
	res, err := h.Service.CompleteMultipartUpload(c.Context(), bucket, key, uploadID)
	if err != nil {
		if !errors.Is(err, objectsvc.ErrUploadNotFound) {
			h.logger().Error("complete multipart upload failed", "bucket", bucket, "key", key, "error", err)
		}
		writeError(c.Writer(), err)
		return nil
	}

	c.Writer().Header().Set("Content-Type", "text/xml")
	c.Writer().WriteHeader(http.StatusOK)
	io.WriteString(c.Writer(), xmlHeader)
	return xml.NewEncoder(c.Writer()).Encode(CompleteMultipartUploadResult{
		Bucket: bucket,
		Key:    key,
		ETag:   etagValue(res.CID),
	})
}
