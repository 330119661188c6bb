package notify

import (
	"fmt"
	"os/exec"
	"runtime"

	log "log/slog"
)

// Desktop sends a system notification through the platform's native
// mechanism. Used for conditions the spoken channel cannot report, like a
// rejected API key or a broken audio device.
type Desktop struct{}

func (Desktop) Notify(title, body string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("notify-send", "--app-name=milo", title, body)
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	default:
		log.Warn("desktop notification", "title", title, "body", body)
		return
	}

	if err := cmd.Run(); err != nil {
		log.Warn("could not send desktop notification", "title", title, "err", err)
	}
}
