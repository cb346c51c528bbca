package main

import "github.com/keurnel/x86asm/cmd/kasm/cmd"

func main() {
	cmd.Execute()
}
