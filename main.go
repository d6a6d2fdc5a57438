package main

import "github.com/mj1618/list-import/cmd"

func main() {
	cmd.Execute()
}
