package main

import "github.com/matthieukhl/bakehouse/internal/cmd"

func main() {
	cmd.Execute()
}
