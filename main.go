package main

import "github.com/pders01/modelkeep/cmd"

func main() {
	cmd.Execute()
}
