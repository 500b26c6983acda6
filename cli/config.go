package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the fully-resolved configuration, secrets redacted",
		RunE:  runConfig,
	}
}

func runConfig(cmd *cobra.Command, args []string) error {
	gw := buildConfig(slog.Default())

	Blank()
	Header("", "casgate configuration")
	Blank()
	Summary(
		"Bind", fmt.Sprintf("%s:%s", gw.Bind, gw.Port),
		"Database path", gw.DatabasePath,
		"RPC address", gw.RPCAddress,
		"RPC username", redactedIfSet(gw.RPCCreds != nil && gw.RPCCreds.Username != ""),
		"RPC password", redactedIfSet(gw.RPCCreds != nil && gw.RPCCreds.Password != ""),
		"Gateway", gw.Gateway,
		"Mode", gw.Mode,
		"Folder prefix", gw.FolderPrefix,
		"IP extraction", gw.IPExtraction,
		"Auth", authSummary(gw.Auth),
		"Concurrent multipart upload", fmt.Sprintf("%d", gw.ConcurrentMultipartUpload),
		"Trim empty folders", fmt.Sprintf("%v", gw.TrimEmptyFolders),
		"Auto mime", fmt.Sprintf("%v", gw.AutoMime),
		"Private CIDRs", fmt.Sprintf("%v", gw.PrivateCIDRs),
	)
	Blank()
	return nil
}

func redactedIfSet(set bool) string {
	if !set {
		return "(not set)"
	}
	return "REDACTED"
}
