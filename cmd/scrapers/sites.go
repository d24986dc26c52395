package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aronkovacs/real-estate-scrapers/pages"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the supported website domains",
	Run: func(cmd *cobra.Command, args []string) {
		for _, site := range pages.All() {
			fmt.Println(site.Domain())
		}
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
