package main

import "github.com/silentcmz/careate-hot-code-push/cmd/chcp-updater/cmd"

func main() {
	cmd.Execute()
}
