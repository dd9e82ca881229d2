package prompts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// LoginPrompt asks for the identity to act as on a registry and its password
type LoginPrompt struct {
	in  *bufio.Reader
	out io.Writer
	// readSecret reads the password; on a terminal it does not echo
	readSecret func() (string, error)
}

// NewLoginPrompt prompts on stdin/stdout
func NewLoginPrompt() *LoginPrompt {
	in := bufio.NewReader(os.Stdin)
	p := &LoginPrompt{in: in, out: os.Stdout}
	p.readSecret = func() (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return readLine(in)
		}
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stdout)
		return string(secret), err
	}
	return p
}

// Ask returns the identity and password entered for server. Identities are
// sent with HTTP basic auth, so they cannot be empty or contain ':'.
func (p *LoginPrompt) Ask(server string) (identity, password string, err error) {
	fmt.Fprintf(p.out, "Logging in to %s\n", server)
	fmt.Fprint(p.out, "Identity: ")
	identity, err = readLine(p.in)
	if err != nil {
		return "", "", fmt.Errorf("failed to read identity: %w", err)
	}
	if identity == "" {
		return "", "", errors.New("identity cannot be empty")
	}
	if strings.Contains(identity, ":") {
		return "", "", fmt.Errorf("identity %q cannot contain ':'", identity)
	}

	fmt.Fprint(p.out, "Password: ")
	password, err = p.readSecret()
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}
	return identity, password, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
