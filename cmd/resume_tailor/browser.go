package main

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// openBrowser opens url with the platform's default handler. The URL is
// always printed so it can be opened by hand when no browser is available.
func openBrowser(out io.Writer) func(url string) error {
	return func(url string) error {
		_, _ = fmt.Fprintf(out, "Opening your browser to sign in with Google:\n  %s\n", url)

		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		return cmd.Start()
	}
}
