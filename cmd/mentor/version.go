package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/mentor"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of mentor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mentor version %s\n", strings.TrimSpace(mentor.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
