package s3

import (
	"encoding/xml"
	"io"
	"net/http"
	"time"

	"github.com/go-mizu/mizu"
)

// GetBucket answers GET /{bucket}[/] — either GetBucketLocation (when
// ?location is present) or a GetBucket stub. Buckets are never
// materialized separately from their objects; both forms always answer
// 200 per the prototype this was distilled from (spec.md §6's "GetBucket
// stub").
func (h *Handler) GetBucket(c *mizu.Ctx) error {
	bucket := c.Param("bucket")

	if _, ok := c.QueryValues()["location"]; ok {
		c.Writer().Header().Set("Content-Type", "text/xml")
		c.Writer().WriteHeader(http.StatusOK)
		io.WriteString(c.Writer(), xmlHeader)
		return xml.NewEncoder(c.Writer()).Encode(LocationConstraint{Value: "ipfs"})
	}

	c.Writer().Header().Set("Content-Type", "application/xml")
	c.Writer().Header().Set("x-amz-bucket-region", "ipfs")
	c.Writer().WriteHeader(http.StatusOK)
	io.WriteString(c.Writer(), xmlHeader)
	return xml.NewEncoder(c.Writer()).Encode(GetBucketResult{
		Bucket:                   bucket,
		PublicAccessBlockEnabled: true,
		CreationDate:             time.Now().UTC().Format(time.RFC3339),
	})
}

// ModifyBucket answers POST /{bucket}[/]. The only implemented bucket
// POST operation is bulk DeleteObjects via ?delete; anything else is
// 501 per spec.md §4.7.
func (h *Handler) ModifyBucket(c *mizu.Ctx) error {
	if _, ok := c.QueryValues()["delete"]; ok {
		return h.deleteObjectsBulk(c)
	}
	c.Writer().WriteHeader(http.StatusNotImplemented)
	return nil
}

func (h *Handler) deleteObjectsBulk(c *mizu.Ctx) error {
	bucket := c.Param("bucket")

	var req deleteObjectRequest
	if err := xml.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		c.Writer().WriteHeader(http.StatusBadRequest)
		return nil
	}

	keys := make([]string, 0, len(req.Objects))
	for _, o := range req.Objects {
		keys = append(keys, o.Key)
	}

	deleted, failed := h.Service.DeleteObjects(c.Context(), bucket, keys)

	result := DeleteResult{}
	for _, k := range deleted {
		result.Deleted = append(result.Deleted, DeletedEntry{Key: k})
	}
	for k, err := range failed {
		result.Errors = append(result.Errors, ErrorEntry{
			Key:     k,
			Code:    "InternalError",
			Message: statusMessage(statusFor(err)),
		})
	}

	c.Writer().Header().Set("Content-Type", "application/xml")
	c.Writer().WriteHeader(http.StatusOK)
	io.WriteString(c.Writer(), xmlHeader)
	return xml.NewEncoder(c.Writer()).Encode(result)
}

func statusMessage(status int) string {
	if t := http.StatusText(status); t != "" {
		return t
	}
	return "Error"
}
