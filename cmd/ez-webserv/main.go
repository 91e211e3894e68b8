package main

import "github.com/raphaelreyna/ez-webserv/cmd/ez-webserv/cmd"

func main() {
	cmd.Execute()
}
