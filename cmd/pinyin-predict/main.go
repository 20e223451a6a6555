package main

import (
	"os"

	"github.com/rcliao/pinyin-predict/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
