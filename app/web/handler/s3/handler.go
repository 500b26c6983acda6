package s3

import (
	"log/slog"

	"github.com/go-mizu/blueprints/casgate/internal/objectsvc"
)

// Handler holds the dependencies the S3 route handlers need: the object
// service (C6) and the GetObject dispatch policy (C8).
type Handler struct {
	Service *objectsvc.Service
	Policy  Policy
	Logger  *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
