package s3

import (
	"errors"
	"net/http"

	"github.com/go-mizu/blueprints/casgate/internal/multipart"
	"github.com/go-mizu/blueprints/casgate/internal/objectsvc"
)

// statusFor maps an objectsvc/multipart/pathutil error to the HTTP status
// spec.md §7 assigns to its error kind. Errors not recognized here are
// treated as an index or CAS transport/query failure (500).
func statusFor(err error) int {
	switch {
	case errors.Is(err, objectsvc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, objectsvc.ErrUploadNotFound):
		return http.StatusBadRequest
	case errors.Is(err, objectsvc.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, objectsvc.ErrCapacity):
		return http.StatusServiceUnavailable
	case errors.Is(err, multipart.ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, multipart.ErrCapacityExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the mapped status with an empty body, per spec.md
// §7: "All other errors are surfaced with the mapped status and an empty
// body (S3 clients tolerate this)."
func writeError(w http.ResponseWriter, err error) {
	w.WriteHeader(statusFor(err))
}
