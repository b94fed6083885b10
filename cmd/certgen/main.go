// Package main generates the development PKI for StudyDesk: a CA and server
// certificate (`certgen init`) and per-user client certificates
// (`certgen issue`).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinyakov/StudyDesk/internal/certgen"
	"github.com/spf13/cobra"
)

var dir string

var rootCmd = &cobra.Command{
	Use:           "certgen",
	Short:         "Generate StudyDesk development certificates",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a CA and a server certificate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hosts, _ := cmd.Flags().GetStringSlice("host")
		ca, caPair, err := certgen.NewCA("StudyDesk Dev CA")
		if err != nil {
			return err
		}
		if err := caPair.Write(dir, "ca"); err != nil {
			return err
		}
		server, err := ca.IssueServer(hosts...)
		if err != nil {
			return err
		}
		if err := server.Write(dir, "server"); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "CA and server certificate for %v written to %s\n", hosts, dir)
		return nil
	},
}

var issueCmd = &cobra.Command{
	Use:   "issue <user-id>",
	Short: "Issue a client certificate for a user",
	Long: `Issue a client certificate whose common name is the user id. The
server accepts it in place of a bearer token when started with
--tls-client-ca pointing at the same CA.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		ca, err := certgen.LoadCA(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
		if err != nil {
			return err
		}
		pair, err := ca.IssueClient(args[0], email)
		if err != nil {
			return err
		}
		if err := pair.Write(dir, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Client certificate written to %s\n",
			filepath.Join(dir, args[0]+".crt"))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dir, "dir", "certs", "output directory")
	initCmd.Flags().StringSlice("host", []string{"localhost", "127.0.0.1"}, "server host names or IPs")
	issueCmd.Flags().String("email", "", "email address for the certificate")
	rootCmd.AddCommand(initCmd, issueCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
