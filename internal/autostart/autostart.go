// Package autostart registers the agent to start at login.
package autostart

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

// Label identifies the login item on every platform.
const Label = "io.vinput.agent"

// ErrUnsupported is returned on platforms without a login item mechanism.
var ErrUnsupported = errors.New("autostart: unsupported platform")

// Entry describes the command started at login.
type Entry struct {
	ExecutablePath string
	Args           []string
}

// AgentEntry returns the entry for the running executable with -serve.
func AgentEntry() (Entry, error) {
	execPath, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	return Entry{ExecutablePath: execPath, Args: []string{"-serve"}}, nil
}

// CommandLine quotes the entry for shells and registry values.
func (e Entry) CommandLine() string {
	parts := []string{quote(e.ExecutablePath)}
	for _, a := range e.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Entry.ExecutablePath}}</string>
{{- range .Entry.Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=vinput agent
Exec={{.Entry.CommandLine}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

// Enable registers e to start on login
func Enable(e Entry) error {
	switch runtime.GOOS {
	case "windows":
		return enableWindows(e)
	case "darwin", "linux", "freebsd", "openbsd", "netbsd":
		path, tmpl, err := filePath()
		if err != nil {
			return err
		}
		return writeEntry(path, tmpl, e)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}
}

// Disable removes the login item
func Disable() error {
	if runtime.GOOS == "windows" {
		return disableWindows()
	}
	path, _, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	if runtime.GOOS == "windows" {
		return isEnabledWindows()
	}
	path, _, err := filePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// filePath returns where the login item file lives and its template.
func filePath() (string, string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), macLaunchAgentPlist, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", "", err
			}
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, "autostart", "vinput.desktop"), xdgDesktopEntry, nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupported, runtime.GOOS)
	}
}

func render(tmplText string, e Entry) ([]byte, error) {
	tmpl, err := template.New("autostart").Parse(tmplText)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Label string
		Entry Entry
	}{Label, e})
	return buf.Bytes(), err
}

func writeEntry(path, tmplText string, e Entry) error {
	data, err := render(tmplText, e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
