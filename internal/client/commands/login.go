package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/client"
	"github.com/criteo/code-id-registry/internal/client/auth"
	"github.com/criteo/code-id-registry/internal/client/errors"
	"github.com/criteo/code-id-registry/internal/client/output"
	"github.com/criteo/code-id-registry/internal/client/prompts"
)

var loginCmd = &cobra.Command{
	Use:   "login [server-url]",
	Short: "Log in to a code ID registry",
	Long: `Verify an identity and password against a registry and store the session.

The server URL comes from the argument, --url, ` + auth.URLEnvVar + ` or the
stored session, in that order. The credentials are checked with
/api/v1/whoami before anything is stored, and the registry admin is looked up
so you know whether this identity can register and unregister.

The session (URL and identity) is stored in ~/.config/codeid-registry with
0600 permissions; the password goes to the Keychain on macOS. A later login
replaces it, and the stored password is only ever sent to that URL.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// loginResult is what login reports once the registry accepted the identity
type loginResult struct {
	Server   string `json:"server"`
	Identity string `json:"identity"`
	Admin    string `json:"admin,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

func runLogin(cmd *cobra.Command, args []string) {
	serverURL := flagURL
	if len(args) > 0 {
		serverURL = args[0]
	}
	serverURL = auth.NormalizeURL(serverURL)
	if serverURL == "" {
		serverURL = resolveTarget().URL
	}

	identity, password, err := prompts.NewLoginPrompt().Ask(serverURL)
	if err != nil {
		errors.ExitWithCode(errors.ExitInvalidArguments, err.Error())
	}
	token := identity + ":" + password

	ctx, cancel := requestContext()
	defer cancel()
	result, err := verifyLogin(ctx, client.NewClient(serverURL, encodeToken(token), flagTimeout, flagVerbose))
	if err != nil {
		var apiErr *client.APIError
		if stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			errors.ExitWithCode(errors.ExitAuthError, "authentication failed: invalid credentials")
		}
		errors.ExitWithAPIError(err)
	}

	if err := auth.SaveSession(auth.Session{URL: serverURL, Identity: result.Identity, Token: token}); err != nil {
		errors.ExitWithError(err, "failed to save session")
	}

	if flagJSON {
		output.OutputJSON(result, nil)
		return
	}
	output.PrintSuccess(fmt.Sprintf("Logged in to %s as %s", result.Server, result.Identity))
	switch {
	case result.IsAdmin:
		fmt.Println("You are the registry admin")
	case result.Admin != "":
		fmt.Printf("Read-only: the registry admin is %s\n", result.Admin)
	default:
		output.PrintWarning("The registry has no admin yet")
	}
}

// verifyLogin checks the credentials with whoami and looks up the admin.
// A registry without an admin still accepts the login.
func verifyLogin(ctx context.Context, c *client.Client) (*loginResult, error) {
	identity, err := c.Whoami(ctx)
	if err != nil {
		return nil, err
	}
	result := &loginResult{Server: c.BaseURL, Identity: identity}

	admin, err := c.Admin(ctx)
	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Admin = admin
	result.IsAdmin = admin == identity
	return result, nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
