package main

import "github.com/silentcmz/careate-hot-code-push/cmd/chcp-server/cmd"

func main() {
	cmd.Execute()
}
