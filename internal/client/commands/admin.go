package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/client/errors"
	"github.com/criteo/code-id-registry/internal/client/output"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Show the registry admin",
	Args:  cobra.NoArgs,
	Run:   runAdmin,
}

var updateAdminCmd = &cobra.Command{
	Use:   "update-admin <identity>",
	Short: "Transfer the admin role",
	Long: `Make <identity> the registry admin. Only the current admin may do this,
and loses every admin right once it succeeds.`,
	Args: cobra.ExactArgs(1),
	Run:  runUpdateAdmin,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the contract name and version recorded by the registry",
	Args:  cobra.NoArgs,
	Run:   runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(updateAdminCmd)
}

func runAdmin(cmd *cobra.Command, args []string) {
	c := getAuthenticatedClient()
	ctx, cancel := requestContext()
	defer cancel()

	admin, err := c.Admin(ctx)
	if err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(map[string]string{"admin": admin}, nil)
		return
	}
	fmt.Println(admin)
}

func runUpdateAdmin(cmd *cobra.Command, args []string) {
	newAdmin := args[0]
	c := getAuthenticatedClient()
	ctx, cancel := requestContext()
	defer cancel()

	if err := c.UpdateAdmin(ctx, newAdmin); err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(map[string]string{"admin": newAdmin}, nil)
		return
	}
	output.PrintSuccess(fmt.Sprintf("Admin is now %s", newAdmin))
}

func runInfo(cmd *cobra.Command, args []string) {
	c := getAuthenticatedClient()
	ctx, cancel := requestContext()
	defer cancel()

	info, err := c.Info(ctx)
	if err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(info, nil)
		return
	}
	fmt.Printf("%s %s\n", info.Contract, info.Version)
}
