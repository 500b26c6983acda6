// Package cli provides the gateway's command-line interface: the serve
// command (C9's entrypoint) and the credentials helper.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var privateCIDRsFlag []string

// flags holds every spec.md §6 configuration value, bound from either a
// command-line flag or its upper-cased environment variable.
var flags struct {
	bind         string
	port         string
	databasePath string
	rpcAddress   string
	rpcUsername  string
	rpcPassword  string

	gateway      string
	mode         string
	folderPrefix string
	ipExtraction string

	accessKey string
	secretKey string

	concurrentMultipartUpload int

	trimEmptyFolders bool
	autoMime         bool
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:     "casgated",
		Short:   "casgate - an S3-compatible gateway over a content-addressed store",
		Version: Version,
	}

	root.PersistentFlags().StringVar(&flags.bind, "bind", envOr("BIND", "0.0.0.0"), "address to bind")
	root.PersistentFlags().StringVar(&flags.port, "port", envOr("PORT", "8080"), "port to listen on")
	root.PersistentFlags().StringVar(&flags.databasePath, "database-path", envOr("DATABASE_PATH", "casgate.db"), "index database file path")
	root.PersistentFlags().StringVar(&flags.rpcAddress, "rpc-address", envOr("RPC_ADDRESS", "http://127.0.0.1:5001/api/v0"), "CAS node RPC base URL")
	root.PersistentFlags().StringVar(&flags.rpcUsername, "rpc-username", envOr("RPC_USERNAME", ""), "CAS node RPC basic-auth username")
	root.PersistentFlags().StringVar(&flags.rpcPassword, "rpc-password", envOr("RPC_PASSWORD", ""), "CAS node RPC basic-auth password")

	root.PersistentFlags().StringVar(&flags.gateway, "gateway", envOr("GATEWAY", "https://dweb.link"), "public gateway used for GetObject redirects")
	root.PersistentFlags().StringVar(&flags.mode, "mode", envOr("MODE", "auto"), "GetObject dispatch mode: proxy, redirect, or auto")
	root.PersistentFlags().StringVar(&flags.folderPrefix, "folder-prefix", envOr("FOLDER_PREFIX", "casgate"), "MFS folder prefix objects are mirrored under")
	root.PersistentFlags().StringVar(&flags.ipExtraction, "ip-extraction", envOr("IP_EXTRACTION", "remote_addr"), "client IP source: remote_addr or x_forwarded_for")

	root.PersistentFlags().StringVar(&flags.accessKey, "auth-access-key", envOr("AUTH_ACCESS_KEY", ""), "SigV4 access key; empty disables request authentication")
	root.PersistentFlags().StringVar(&flags.secretKey, "auth-secret-key", envOr("AUTH_SECRET_KEY", ""), "SigV4 secret key")

	root.PersistentFlags().IntVar(&flags.concurrentMultipartUpload, "concurrent-multipart-upload", envOrInt("CONCURRENT_MULTIPART_UPLOAD", 64), "maximum number of in-flight multipart uploads")

	root.PersistentFlags().BoolVar(&flags.trimEmptyFolders, "trim-empty-folders", envOrBool("TRIM_EMPTY_FOLDERS", false), "experimental: remove empty MFS ancestor directories after delete")
	root.PersistentFlags().BoolVar(&flags.autoMime, "auto-mime", envOrBool("AUTO_MIME", true), "experimental: derive content type from the object key when the client omits one")
	root.PersistentFlags().StringSliceVar(&privateCIDRsFlag, "private-cidrs", envList("PRIVATE_CIDRS"), "experimental: additional CIDRs treated as private for auto dispatch mode")

	root.AddCommand(newServeCmd(), newConfigCmd(), newCredentialsCmd())
	root.RunE = runServe

	return root.ExecuteContext(ctx)
}
