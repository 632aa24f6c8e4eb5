package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/goAuthen/filter"
)

var (
	hashFilter   string
	hashHtpasswd string
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Hash a password with a filter spec for use in driver tables",
	Long: `hash prompts for a password and prints it passed through the filter
spec, ready to be stored in a generic driver table or SQL column.

  authenctl hash --filter bcrypt
  authenctl hash --filter lc,sha256

With --htpasswd NAME the output is an htpasswd line for NAME; use a bcrypt,
argon2 or sha1:base64 filter so the htpasswd driver can read it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := filter.Default().Validate(hashFilter); err != nil {
			return err
		}
		pw, err := promptSecret("Password")
		if err != nil {
			return err
		}
		confirm, err := promptSecret("Confirm password")
		if err != nil {
			return err
		}
		if pw != confirm {
			return errors.New("passwords do not match")
		}
		out, err := filter.Filter(hashFilter, pw)
		if err != nil {
			return err
		}
		if hashHtpasswd != "" {
			out = htpasswdLine(hashHtpasswd, hashFilter, out)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	hashCmd.Flags().StringVarP(&hashFilter, "filter", "f", "bcrypt", "filter spec")
	hashCmd.Flags().StringVar(&hashHtpasswd, "htpasswd", "", "print an htpasswd line for this user")
}

// htpasswdLine formats hash as an htpasswd entry. SHA-1 digests get the
// {SHA} marker the htpasswd driver expects.
func htpasswdLine(user, spec, hash string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(spec)), "sha1:base64") {
		hash = "{SHA}" + hash
	}
	return user + ":" + hash
}
