package main

import "github.com/leafpore/plugmesh/cmd"

func main() {
	cmd.Execute()
}
