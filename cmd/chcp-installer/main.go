package main

import "github.com/silentcmz/careate-hot-code-push/cmd/chcp-installer/cmd"

func main() {
	cmd.Execute()
}
