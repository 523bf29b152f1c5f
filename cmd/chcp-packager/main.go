package main

import "github.com/silentcmz/careate-hot-code-push/cmd/chcp-packager/cmd"

func main() {
	cmd.Execute()
}
