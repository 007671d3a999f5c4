package main

import (
	"github.com/pkgshield/pkgshield/cmd"
	"github.com/pkgshield/pkgshield/internal/config"
)

func main() {
	config.LoadConfig()
	cmd.Execute()
}
