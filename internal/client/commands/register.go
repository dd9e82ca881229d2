package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/client/errors"
	"github.com/criteo/code-id-registry/internal/client/output"
	"github.com/criteo/code-id-registry/internal/client/prompts"
	"github.com/criteo/code-id-registry/internal/client/validation"
	"github.com/criteo/code-id-registry/internal/models"
)

var regChecksum string

var registerCmd = &cobra.Command{
	Use:   "register <contract-name> <version> <chain-id> <code-id>",
	Short: "Register a code ID for a contract version",
	Long: `Record that <code-id> on <chain-id> holds <contract-name> at <version>.

A code ID can only be registered once per chain. Registering a version that
already exists on the chain moves it to the new code ID and frees the old one.
Only the registry admin may register.`,
	Args: cobra.ExactArgs(4),
	Run:  runRegister,
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister <contract-name> <chain-id> <code-id> <version>",
	Short: "Remove a registration",
	Long: `Remove the registration of <contract-name> <version> on <chain-id> with <code-id>.

The four values must describe the same registration; if the name or the code
ID is bound to something else the server refuses and nothing is removed.
Removing a registration that does not exist succeeds.`,
	Args: cobra.ExactArgs(4),
	Run:  runUnregister,
}

func init() {
	registerCmd.Flags().StringVar(&regChecksum, "checksum", "", "Checksum of the uploaded artifact, stored as given (e.g. its sha256 hex digest)")
	registerCmd.MarkFlagRequired("checksum")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unregisterCmd)
}

func buildRegisterRequest(args []string, checksum string) (models.RegisterRequest, error) {
	name, version, chainID := args[0], args[1], args[2]
	for field, value := range map[string]string{"contract name": name, "version": version, "chain ID": chainID} {
		if err := validation.ValidateKeyPart(field, value); err != nil {
			return models.RegisterRequest{}, err
		}
	}
	codeID, err := validation.ParseCodeID(args[3])
	if err != nil {
		return models.RegisterRequest{}, err
	}
	return models.RegisterRequest{
		ContractName: name,
		Version:      version,
		ChainID:      chainID,
		CodeID:       codeID,
		Checksum:     checksum,
	}, nil
}

func buildUnregisterRequest(args []string) (models.UnregisterRequest, error) {
	name, chainID, version := args[0], args[1], args[3]
	for field, value := range map[string]string{"contract name": name, "chain ID": chainID, "version": version} {
		if err := validation.ValidateKeyPart(field, value); err != nil {
			return models.UnregisterRequest{}, err
		}
	}
	codeID, err := validation.ParseCodeID(args[2])
	if err != nil {
		return models.UnregisterRequest{}, err
	}
	return models.UnregisterRequest{
		ContractName: name,
		ChainID:      chainID,
		CodeID:       codeID,
		Version:      version,
	}, nil
}

func runRegister(cmd *cobra.Command, args []string) {
	req, err := buildRegisterRequest(args, regChecksum)
	if err != nil {
		errors.ExitWithCode(errors.ExitInvalidArguments, err.Error())
	}

	c := getAuthenticatedClient()
	ctx, cancel := requestContext()
	defer cancel()

	reg, err := c.Register(ctx, req)
	if err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(reg, nil)
		return
	}
	output.PrintSuccess(fmt.Sprintf("Registered %s %s on %s as code ID %d", reg.ContractName, reg.Version, reg.ChainID, reg.CodeID))
}

func runUnregister(cmd *cobra.Command, args []string) {
	req, err := buildUnregisterRequest(args)
	if err != nil {
		errors.ExitWithCode(errors.ExitInvalidArguments, err.Error())
	}

	if !flagYes && !flagJSON {
		target := fmt.Sprintf("%s@%s", req.ContractName, req.Version)
		detail := fmt.Sprintf("free code ID %d on %s", req.CodeID, req.ChainID)
		if !prompts.ConfirmDeletion("registration", target, detail) {
			fmt.Fprintln(os.Stderr, "Aborted")
			return
		}
	}

	c := getAuthenticatedClient()
	ctx, cancel := requestContext()
	defer cancel()

	if err := c.Unregister(ctx, req); err != nil {
		errors.ExitWithAPIError(err)
	}

	if flagJSON {
		output.OutputJSON(req, nil)
		return
	}
	output.PrintSuccess(fmt.Sprintf("Unregistered %s %s (code ID %d on %s)", req.ContractName, req.Version, req.CodeID, req.ChainID))
}
