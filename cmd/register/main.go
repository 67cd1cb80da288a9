// Command register runs the registration flow once. By default the browser
// stays open afterwards until the process is interrupted. It accepts the
// same flags as "flowrunner register".
package main

import (
	"context"

	"github.com/xkilldash9x/flowrunner/cmd"
)

func main() {
	cmd.Main(func(ctx context.Context) error {
		return cmd.ExecuteFlow(ctx, "register")
	})
}
