package main

import "github.com/kebairia/tablesnap/cmd"

func main() {
	cmd.Execute()
}
