/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/dynattr/cmd/dynattr/cmd"
	"github.com/ssargent/dynattr/pkg/di"
)

func main() {
	container := di.NewContainer()

	cmd.SetContainer(container)

	cmd.Execute()
}
