package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/criteo/code-id-registry/internal/auth"
	"github.com/criteo/code-id-registry/internal/models"
)

var (
	hashIdentity  string
	hashFromStdin bool
)

// AuthCmd represents the auth command
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication utilities",
	Long:  `Utilities for managing authentication credentials.`,
}

// HashPasswordCmd represents the hash-password command
var HashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Generate bcrypt hash for a password",
	Long: `Generate a bcrypt hash for the credentials file (auth.users_file).

With --identity the output is a complete credentials file entry. The identity
is what the registry compares against its admin, so it must match
registry.identity_pattern.`,
	RunE: runHashPassword,
}

func init() {
	HashPasswordCmd.Flags().StringVarP(&hashIdentity, "identity", "i", "", "Print a credentials file entry for this identity")
	HashPasswordCmd.Flags().BoolVar(&hashFromStdin, "stdin", false, "Read the password from the first line of stdin")
	AuthCmd.AddCommand(HashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd, hashFromStdin)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return writeHash(cmd.OutOrStdout(), hashIdentity, hash)
}

func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	var password string
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	} else {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
		passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr())
		password = string(passwordBytes)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func writeHash(w io.Writer, identity, hash string) error {
	if identity == "" {
		fmt.Fprintln(w, "Bcrypt hash (use this as password_hash):")
		fmt.Fprintln(w, hash)
		return nil
	}

	if err := models.DefaultValidator().ValidateIdentity(identity); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (fine only with a custom registry.identity_pattern)\n", err)
	}
	data, err := auth.MarshalCredentials(auth.Credential{Identity: identity, PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("failed to encode credentials entry: %w", err)
	}
	_, err = w.Write(data)
	return err
}
