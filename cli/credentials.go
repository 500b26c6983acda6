package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-mizu/blueprints/casgate/internal/random"
)

func newCredentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credentials",
		Short: "Generate a random SigV4 access key and secret key pair",
		RunE:  runCredentials,
	}
}

func runCredentials(cmd *cobra.Command, args []string) error {
	accessKey := random.AccessKey()
	secretKey := random.SecretKey()

	Blank()
	Header("", "Generated credentials")
	Blank()
	Summary(
		"AUTH_ACCESS_KEY", accessKey,
		"AUTH_SECRET_KEY", secretKey,
	)
	Blank()
	fmt.Fprintf(cmd.OutOrStdout(), "AUTH_ACCESS_KEY=%s\nAUTH_SECRET_KEY=%s\n", accessKey, secretKey)
	return nil
}
