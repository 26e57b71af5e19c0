package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "bubble"}

	root.AddCommand(serveCMD(), migrateCMD(), searchCMD())
	_ = root.Execute()
}
