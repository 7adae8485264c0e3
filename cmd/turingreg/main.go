package main

import "github.com/mlcoe/turingreg/cmd/turingreg/cmd"

func main() {
	cmd.Execute()
}
