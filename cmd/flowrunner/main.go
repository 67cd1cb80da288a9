// Command flowrunner drives the login and registration flows of a web
// application in a real browser.
package main

import "github.com/xkilldash9x/flowrunner/cmd"

func main() {
	cmd.Main(cmd.Execute)
}
