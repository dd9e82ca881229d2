package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/client/errors"
	"github.com/criteo/code-id-registry/internal/client/output"
	"github.com/criteo/code-id-registry/internal/client/validation"
)

var getVersion string

var getCmd = &cobra.Command{
	Use:   "get <contract-name> <chain-id>",
	Short: "Show a registration",
	Long: `Show the registration of <contract-name> on <chain-id>.

Without --version the latest version is shown. Versions are compared as plain
strings, byte by byte: "0.0.2" is later than "0.0.10".`,
	Args: cobra.ExactArgs(2),
	Run:  runGet,
}

var codeIDCmd = &cobra.Command{
	Use:   "code-id <chain-id> <code-id>",
	Short: "Show what a code ID holds",
	Args:  cobra.ExactArgs(2),
	Run:   runCodeID,
}

var listCmd = &cobra.Command{
	Use:   "list <contract-name> <chain-id>",
	Short: "List every registered version of a contract on a chain",
	Args:  cobra.ExactArgs(2),
	Run:   runList,
}

func init() {
	getCmd.Flags().StringVar(&getVersion, "version", "", "Exact version to show (default: latest)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(codeIDCmd)
	rootCmd.AddCommand(listCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	validateArgs(map[string]string{"contract name": args[0], "chain ID": args[1]})

	c := getAuthenticatedClient()
	ctx, cancel := requestContext()
	defer cancel()

	var version *string
	if cmd.Flags().Changed("version") {
		version = &getVersion
	}
	reg, err := c.GetRegistration(ctx, args[0], args[1], version)
	if err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(reg, nil)
		return
	}
	if err := output.WriteRegistration(os.Stdout, reg); err != nil {
		errors.ExitWithError(err, "failed to print registration")
	}
}

func runCodeID(cmd *cobra.Command, args []string) {
	validateArgs(map[string]string{"chain ID": args[0]})
	codeID, err := validation.ParseCodeID(args[1])
	if err != nil {
		errors.ExitWithCode(errors.ExitInvalidArguments, err.Error())
	}

	c := getAuthenticatedClient()
	ctx, cancel := requestContext()
	defer cancel()

	reg, err := c.GetCodeID(ctx, args[0], codeID)
	if err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(reg, nil)
		return
	}
	if err := output.WriteRegistration(os.Stdout, reg); err != nil {
		errors.ExitWithError(err, "failed to print registration")
	}
}

func runList(cmd *cobra.Command, args []string) {
	validateArgs(map[string]string{"contract name": args[0], "chain ID": args[1]})

	c := getAuthenticatedClient()
	ctx, cancel := requestContext()
	defer cancel()

	regs, err := c.ListRegistrations(ctx, args[0], args[1])
	if err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(regs, nil)
		return
	}
	if len(regs) == 0 {
		fmt.Printf("No registrations for %s on %s\n", args[0], args[1])
		return
	}
	if err := output.WriteRegistrations(os.Stdout, regs); err != nil {
		errors.ExitWithError(err, "failed to print registrations")
	}
}

func validateArgs(fields map[string]string) {
	for field, value := range fields {
		if err := validation.ValidateKeyPart(field, value); err != nil {
			errors.ExitWithCode(errors.ExitInvalidArguments, err.Error())
		}
	}
}
