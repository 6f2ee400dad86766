package main

import (
	"github.com/caldog20/tapserver/relay/cmd"
)

// Calls root cobra command in relay/cmd/root.go
func main() {
	cmd.Execute()
}
