package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/client/auth"
	"github.com/criteo/code-id-registry/internal/client/errors"
	"github.com/criteo/code-id-registry/internal/client/output"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored registry session",
	Long: `Remove the stored registry URL, identity and password.

Succeeds when no session is stored.`,
	Args: cobra.NoArgs,
	Run:  runLogout,
}

func runLogout(cmd *cobra.Command, args []string) {
	// an unreadable session is still deleted below
	session, _ := auth.LoadSession()

	if err := auth.DeleteSession(); err != nil {
		errors.ExitWithError(err, "failed to remove session")
	}

	if flagJSON {
		result := map[string]any{"logged_out": session != nil}
		if session != nil {
			result["server"] = session.URL
			result["identity"] = session.Identity
		}
		output.OutputJSON(result, nil)
		return
	}
	if session == nil {
		fmt.Println("No stored session")
		return
	}
	output.PrintSuccess(fmt.Sprintf("Logged out %s from %s", session.Identity, session.URL))
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
