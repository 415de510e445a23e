package main

import (
	"github.com/spf13/cobra"
)

var commandGenerate = &cobra.Command{
	Use:   "generate",
	Short: "Generate things",
}

func init() {
	mainCommand.AddCommand(commandGenerate)
}
