// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"os/user"

	"loopfuse/repl"
)

func main() {
	currentUser, err := user.Current()
	if err != nil {
		fmt.Printf("Error getting current user: %v\n", err)
		return
	}

	fmt.Printf("Welcome to the loopfuse REPL, %s!\n", currentUser.Username)
	fmt.Println("Enter a function; it is fused once its closing brace is read.")
	repl.Start(os.Stdin, os.Stdout)
}
