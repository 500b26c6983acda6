package web

import (
	"net"
	"time"

	"github.com/go-mizu/blueprints/casgate/internal/config"
)

// Config is everything Server needs to start: the parsed gateway
// configuration (C9) plus the resolved private-CIDR table its dispatch
// policy (C8) classifies client addresses against.
type Config struct {
	Gateway         config.Config
	PrivateCIDRs    []*net.IPNet
	ShutdownTimeout time.Duration
}
