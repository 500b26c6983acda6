// Package config holds the gateway's immutable runtime configuration (C9):
// every value named in spec.md §4.9/§6, bound from flags or environment
// variables and never mutated for the lifetime of the process.
package config

import (
	"log/slog"
	"net"
)

// AuthConfig is the optional static SigV4 credential pair. Its absence
// disables C3 entirely (no Authorization header is ever checked).
type AuthConfig struct {
	AccessKey string
	SecretKey string
}

// LogValue redacts the secret key, per spec.md's invariant 9.
func (a AuthConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key", a.AccessKey),
		slog.String("secret_key", "REDACTED"),
	)
}

// RPCCredentials is the optional basic-auth pair for the CAS node's RPC
// endpoint.
type RPCCredentials struct {
	Username string
	Password string
}

// LogValue redacts the password.
func (c RPCCredentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", "REDACTED"),
	)
}

// Config is every value spec.md §6 enumerates. It is built once at
// startup and never mutated afterward.
type Config struct {
	Bind         string
	Port         string
	DatabasePath string
	RPCAddress   string
	RPCCreds     *RPCCredentials

	Gateway      string
	Mode         string // proxy | redirect | auto
	FolderPrefix string
	IPExtraction string // remote_addr | x_forwarded_for

	Auth *AuthConfig

	ConcurrentMultipartUpload int

	// Experimental flags.
	TrimEmptyFolders bool
	AutoMime         bool
	PrivateCIDRs     []string
}

// LogValue reports the configuration with secrets redacted, suitable for
// a single startup log line.
func (c Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("bind", c.Bind),
		slog.String("port", c.Port),
		slog.String("database_path", c.DatabasePath),
		slog.String("rpc_address", c.RPCAddress),
		slog.String("gateway", c.Gateway),
		slog.String("mode", c.Mode),
		slog.String("folder_prefix", c.FolderPrefix),
		slog.String("ip_extraction", c.IPExtraction),
		slog.Int("concurrent_multipart_upload", c.ConcurrentMultipartUpload),
		slog.Bool("trim_empty_folders", c.TrimEmptyFolders),
		slog.Bool("auto_mime", c.AutoMime),
	}
	if c.RPCCreds != nil {
		attrs = append(attrs, slog.Any("rpc_credentials", *c.RPCCreds))
	}
	if c.Auth != nil {
		attrs = append(attrs, slog.Any("auth", *c.Auth))
	}
	return slog.GroupValue(attrs...)
}

// ParsePrivateCIDRs parses the configured private_cidrs list, skipping
// (and logging) malformed entries rather than failing startup over an
// operator typo. iprange.IsPrivate already checks the RFC 6890 reserved
// set unconditionally, so only the operator's extra ranges are returned
// here.
func ParsePrivateCIDRs(log *slog.Logger, raw []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(raw))
	for _, s := range raw {
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			if log != nil {
				log.Warn("ignoring malformed private_cidrs entry", "value", s, "error", err)
			}
			continue
		}
		nets = append(nets, n)
	}
	return nets
}
