package reaction

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// =============================================================================
// Commander
// =============================================================================

// Commander runs an external OS command. It exists so tests can observe
// shell-outs without spawning processes.
type Commander interface {
	Run(ctx context.Context, name string, args ...string) error
}

// execCommander runs commands with os/exec.
type execCommander struct{}

// NewExecCommander returns a Commander backed by os/exec.
func NewExecCommander() Commander {
	return execCommander{}
}

func (execCommander) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// =============================================================================
// Platform command tables
// =============================================================================

// platformCommands holds the OS automation shell-outs for one platform.
// Each is treated as a black box returning success or failure.
type platformCommands struct {
	// sound plays an audible warning cue. soundFallback, when set, is
	// tried if the primary player fails (PulseAudio vs bare ALSA hosts).
	sound         []string
	soundFallback []string

	// notify builds a desktop notification command.
	notify func(title, body string) []string

	// inject builds a command typing text into the focused window.
	inject func(text string) []string

	// probe is a harmless automation call used to detect whether keystroke
	// injection is permitted. Empty means no probe is needed.
	probe []string
}

// commandsFor returns the automation commands for an OS ("darwin", "linux",
// "windows"). Unknown platforms get the linux table.
func commandsFor(goos string) platformCommands {
	switch goos {
	case "darwin":
		return darwinCommands()
	case "windows":
		return windowsCommands()
	default:
		return linuxCommands()
	}
}

// hostCommands returns the command table for the running OS.
func hostCommands() platformCommands {
	return commandsFor(runtime.GOOS)
}

func darwinCommands() platformCommands {
	return platformCommands{
		sound: []string{"afplay", "/System/Library/Sounds/Basso.aiff"},
		notify: func(title, body string) []string {
			script := fmt.Sprintf("display notification %q with title %q", body, title)
			return []string{"osascript", "-e", script}
		},
		inject: func(text string) []string {
			script := fmt.Sprintf("tell application %q to keystroke %q", "System Events", text)
			return []string{"osascript", "-e", script}
		},
		// Typing an empty string errors unless accessibility permission
		// has been granted to the invoking terminal.
		probe: []string{"osascript", "-e", `tell application "System Events" to keystroke ""`},
	}
}

func linuxCommands() platformCommands {
	return platformCommands{
		sound:         []string{"paplay", "/usr/share/sounds/freedesktop/stereo/dialog-warning.oga"},
		soundFallback: []string{"aplay", "/usr/share/sounds/alsa/Front_Center.wav"},
		notify: func(title, body string) []string {
			return []string{"notify-send", "--urgency=critical", title, body}
		},
		inject: func(text string) []string {
			return []string{"xdotool", "type", "--delay", "25", text}
		},
		probe: []string{"xdotool", "version"},
	}
}

func windowsCommands() platformCommands {
	return platformCommands{
		sound: []string{"powershell", "-NoProfile", "-Command", "[console]::beep(880,400)"},
		notify: func(title, body string) []string {
			script := fmt.Sprintf(
				"[System.Windows.Forms.MessageBox]::Show(%s, %s)",
				psQuote(body), psQuote(title))
			return []string{"powershell", "-NoProfile", "-Command",
				"Add-Type -AssemblyName System.Windows.Forms; " + script}
		},
		inject: func(text string) []string {
			script := fmt.Sprintf("[System.Windows.Forms.SendKeys]::SendWait(%s)", psQuote(text))
			return []string{"powershell", "-NoProfile", "-Command",
				"Add-Type -AssemblyName System.Windows.Forms; " + script}
		},
	}
}

// psQuote single-quotes a string for PowerShell.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
