package prompts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmDeletion prompts user to confirm a deletion operation
// Returns true if user confirms, false otherwise
func ConfirmDeletion(resourceType, resourceName, detail string) bool {
	return Confirm(os.Stdin, os.Stdout, resourceType, resourceName, detail)
}

// Confirm asks for a y/N answer on in, writing the prompt to out
func Confirm(in io.Reader, out io.Writer, resourceType, resourceName, detail string) bool {
	fmt.Fprintf(out, "⚠ This will delete %s '%s'", resourceType, resourceName)
	if detail != "" {
		fmt.Fprintf(out, " and %s", detail)
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, "Are you sure? [y/N]: ")

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
