package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailsift/mailsift/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailsiftd",
		Short: "Mailsift daemon and CLI",
		Long:  "Mailsift daemon for running the API server and classifying messages into categories",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.BootstrapCmd())
	rootCmd.AddCommand(cli.ImportCmd())
	rootCmd.AddCommand(cli.ClassifyCmd())
	rootCmd.AddCommand(cli.ClassifyAllCmd())
	rootCmd.AddCommand(cli.CategoryCmd())
	rootCmd.AddCommand(cli.ReembedCmd())

	cli.AddHelpJSONFlag(rootCmd)
	cli.CheckHelpJSON(rootCmd)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
