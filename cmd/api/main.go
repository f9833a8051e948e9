package main

import "github.com/Dan9191/loan-tracker/internal/cli"

func main() {
	cli.Execute()
}
