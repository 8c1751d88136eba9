package main

import (
	"os"

	servecmder "github.com/papercomputeco/ragline/cmd/ragline/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "raglineapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .ragline/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
