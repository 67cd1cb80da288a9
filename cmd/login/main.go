// Command login runs the login flow once with the configuration found in
// the working directory and the environment. It accepts the same flags as
// "flowrunner login".
package main

import (
	"context"

	"github.com/xkilldash9x/flowrunner/cmd"
)

func main() {
	cmd.Main(func(ctx context.Context) error {
		return cmd.ExecuteFlow(ctx, "login")
	})
}
