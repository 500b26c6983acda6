package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/go-mizu/blueprints/casgate/app/web"
	"github.com/go-mizu/blueprints/casgate/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Long: `Start the casgate gateway server.

Examples:
  casgated serve
  casgated serve --bind 0.0.0.0 --port 9000
  casgated serve --mode proxy --rpc-address http://127.0.0.1:5001/api/v0`,
		RunE: runServe,
	}
}

func buildConfig(log *slog.Logger) config.Config {
	var rpcCreds *config.RPCCredentials
	if flags.rpcUsername != "" || flags.rpcPassword != "" {
		rpcCreds = &config.RPCCredentials{Username: flags.rpcUsername, Password: flags.rpcPassword}
	}

	var auth *config.AuthConfig
	if flags.accessKey != "" && flags.secretKey != "" {
		auth = &config.AuthConfig{AccessKey: flags.accessKey, SecretKey: flags.secretKey}
	}

	return config.Config{
		Bind:         flags.bind,
		Port:         flags.port,
		DatabasePath: flags.databasePath,
		RPCAddress:   flags.rpcAddress,
		RPCCreds:     rpcCreds,

		Gateway:      flags.gateway,
		Mode:         flags.mode,
		FolderPrefix: flags.folderPrefix,
		IPExtraction: flags.ipExtraction,

		Auth: auth,

		ConcurrentMultipartUpload: flags.concurrentMultipartUpload,

		TrimEmptyFolders: flags.trimEmptyFolders,
		AutoMime:         flags.autoMime,
		PrivateCIDRs:     privateCIDRsFlag,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.Default()
	gw := buildConfig(log)

	Blank()
	Header("", "casgate")
	Blank()

	Summary(
		"Bind", fmt.Sprintf("%s:%s", gw.Bind, gw.Port),
		"Database", gw.DatabasePath,
		"RPC address", gw.RPCAddress,
		"Mode", gw.Mode,
		"Auth", authSummary(gw.Auth),
		"Version", Version,
	)
	Blank()

	cidrs := config.ParsePrivateCIDRs(log, gw.PrivateCIDRs)

	srv, err := web.New(web.Config{
		Gateway:      gw,
		PrivateCIDRs: cidrs,
	}, log)
	if err != nil {
		Error(fmt.Sprintf("failed to create server: %v", err))
		return err
	}
	defer srv.Close()

	ln, err := config.Listen(gw.Bind, gw.Port)
	if err != nil {
		Error(fmt.Sprintf("failed to bind: %v", err))
		return err
	}

	Step("", fmt.Sprintf("listening on %s", ln.Addr()))
	Blank()

	if err := srv.Serve(cmd.Context(), ln); err != nil {
		Error(fmt.Sprintf("server error: %v", err))
		return err
	}

	Success("server stopped")
	return nil
}

func authSummary(a *config.AuthConfig) string {
	if a == nil {
		return "disabled"
	}
	return "enabled (" + a.AccessKey + ")"
}
