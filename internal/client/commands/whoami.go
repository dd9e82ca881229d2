package commands

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/client"
	"github.com/criteo/code-id-registry/internal/client/auth"
	"github.com/criteo/code-id-registry/internal/client/errors"
	"github.com/criteo/code-id-registry/internal/client/output"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity the registry sees and whether it is the admin",
	Long: `Ask the registry which identity the current credentials authenticate as.

Registry and credentials are resolved as for every command:
- URL: --url flag > ` + auth.URLEnvVar + ` env var > stored session
- Credentials: --token flag > ` + auth.TokenEnvVar + ` env var > stored session (same URL only)`,
	Args: cobra.NoArgs,
	Run:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) {
	target := resolveTarget()
	c := client.NewClient(target.URL, encodeToken(target.Token), flagTimeout, flagVerbose)
	ctx, cancel := requestContext()
	defer cancel()

	result, err := verifyLogin(ctx, c)
	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		if flagJSON {
			output.OutputJSON(map[string]any{"server": target.URL, "authenticated": false}, nil)
		} else {
			output.PrintError(fmt.Sprintf("Not authenticated to %s", target.URL))
			fmt.Println("Run 'codeid-regctl login' to authenticate")
		}
		errors.ExitWithCode(errors.ExitAuthError, "")
	}
	if err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(result, nil)
		return
	}
	output.PrintSuccess(fmt.Sprintf("Authenticated to %s as %s", result.Server, result.Identity))
	if target.Identity != "" && target.Identity != result.Identity {
		output.PrintWarning(fmt.Sprintf("Stored session was verified as %s", target.Identity))
	}
	if result.IsAdmin {
		fmt.Println("You are the registry admin")
	} else if result.Admin != "" {
		fmt.Printf("Read-only: the registry admin is %s\n", result.Admin)
	}
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
