package assistant

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Launcher opens a URL in the user's default browser.
type Launcher interface {
	Open(url string) error
}

// SystemBrowser launches the platform's URL opener.
type SystemBrowser struct{}

func (SystemBrowser) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	// Release the child; the browser outlives us.
	go cmd.Wait()
	return nil
}
