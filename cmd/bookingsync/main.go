package main

import "github.com/example/bookingsync/cmd"

func main() {
	cmd.Execute()
}
