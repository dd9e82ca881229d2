package commands

import (
	"context"
	stderrors "errors"
	"encoding/base64"
	"time"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/client"
	"github.com/criteo/code-id-registry/internal/client/auth"
	"github.com/criteo/code-id-registry/internal/client/errors"
)

var (
	// Global flags
	flagURL     string
	flagToken   string
	flagJSON    bool
	flagVerbose bool
	flagTimeout time.Duration
	flagYes     bool
)

// Version is set by the main package
var Version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "codeid-regctl",
	Short: "Code ID Registry CLI Client",
	Long: `codeid-regctl is a command-line client for the code ID registry.

It registers which code ID a chain assigned to a (contract name, version) pair,
and looks registrations up by name, by version or by code ID.`,
}

// Execute executes the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Server URL (or use "+auth.URLEnvVar+" env var)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Credentials in 'identity:password' format (or use "+auth.TokenEnvVar+" env var)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Skip confirmation prompts")
}

// resolveTarget resolves the registry and credentials from flags, env and
// the stored session
func resolveTarget() auth.Target {
	target, err := auth.Resolve(flagURL, flagToken)
	if stderrors.Is(err, auth.ErrNoServer) {
		errors.ExitWithCode(errors.ExitInvalidArguments, err.Error())
	}
	if err != nil {
		errors.ExitWithError(err, "failed to resolve registry")
	}
	return target
}

// getAuthenticatedClient returns a client for the resolved registry; the
// server decides whether a route needs the credentials
func getAuthenticatedClient() *client.Client {
	target := resolveTarget()
	return client.NewClient(target.URL, encodeToken(target.Token), flagTimeout, flagVerbose)
}

func encodeToken(token string) string {
	if token == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(token))
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), flagTimeout)
}
