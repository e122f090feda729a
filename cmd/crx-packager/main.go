package main

import "github.com/oshokin/crx-packager/cmd/crx-packager/cmd"

func main() {
	cmd.Execute()
}
