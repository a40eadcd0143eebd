// Command hashpw reads a password from the terminal and prints its
// argon2id hash, for seeding accounts by hand.
package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/vmalyshev/authcore/internal/password"
)

func main() {
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read password: %v\n", err)
		os.Exit(1)
	}

	policy := password.Default()
	if violations := policy.ValidationErrors(string(raw)); len(violations) != 0 {
		for _, v := range violations {
			fmt.Fprintln(os.Stderr, "warning:", v)
		}
	}

	hash, err := policy.Hash(string(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
