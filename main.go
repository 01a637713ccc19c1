package main

import "github.com/pgindex/pgindex/cmd"

func main() {
	cmd.Execute()
}
