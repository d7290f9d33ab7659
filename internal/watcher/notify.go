package watcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// Notify shows the alert as a desktop notification. Platforms without a
// notifier, and notifiers that fail, get the alert on stderr instead.
func Notify(alert Alert) error {
	name, args := notifyCommand(runtime.GOOS, alert)
	if name == "" {
		return notifyFallback(os.Stderr, alert)
	}
	if err := exec.Command(name, args...).Run(); err != nil {
		return notifyFallback(os.Stderr, alert)
	}
	return nil
}

// notifyCommand returns the notifier invocation for goos, or an empty name
// when none is available.
func notifyCommand(goos string, alert Alert) (string, []string) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title "smilecoach" subtitle %q`,
			alert.Message, alert.Title)
		return "osascript", []string{"-e", script}
	case "linux":
		if _, err := lookPath("notify-send"); err != nil {
			return "", nil
		}
		return "notify-send", []string{
			"--app-name=smilecoach",
			"--urgency=" + urgency(alert.Level),
			"smilecoach: " + alert.Title,
			alert.Message,
		}
	}
	return "", nil
}

// urgency maps an alert level onto a notify-send urgency.
func urgency(level string) string {
	switch level {
	case "critical":
		return "critical"
	case "warning":
		return "normal"
	}
	return "low"
}

func notifyFallback(w io.Writer, alert Alert) error {
	_, err := fmt.Fprintf(w, "[%s] %s: %s\n", alert.Level, alert.Title, alert.Message)
	return err
}
