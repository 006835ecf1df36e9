//go:build windows

package osutils

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}

	return member
}

// FirewallRuleName is the display name of the inbound rule created for
// the agent ports.
const FirewallRuleName = "vinput agent"

// EnsureFirewallRule checks that inbound rules for the agent's HTTP and
// UDP ports exist, and if not, attempts to create them using PowerShell
// with admin elevation.
func EnsureFirewallRule(tcpPort, udpPort int) error {
	log.Printf("Firewall: Checking status for rule '%s' on TCP %d / UDP %d...", FirewallRuleName, tcpPort, udpPort)

	checkCmd := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+FirewallRuleName)
	output, err := checkCmd.CombinedOutput()
	if err == nil && ruleMatches(string(output), tcpPort, udpPort) {
		log.Printf("Firewall: Rule '%s' already exists and matches. OK.", FirewallRuleName)
		return nil
	}
	log.Printf("Firewall: Rule '%s' missing or outdated. Creating...", FirewallRuleName)

	psCommand := firewallScript(tcpPort, udpPort)

	if !IsAdmin() {
		log.Println("Firewall: Current process is NOT elevated. Requesting UAC elevation via ShellExecute...")

		verbPtr, _ := syscall.UTF16PtrFromString("runas")
		exePtr, _ := syscall.UTF16PtrFromString("powershell.exe")
		argPtr, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", psCommand))

		var showCmd int32 = 0 // SW_HIDE

		if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, nil, showCmd); err != nil {
			return fmt.Errorf("failed to launch elevated powershell via ShellExecute: %w", err)
		}
		log.Println("Firewall: UAC prompt requested. Please check your screen/taskbar.")
		return nil
	}

	cmd := exec.Command("powershell", "-NoProfile", "-Command", psCommand)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create firewall rule: %w (Output: %s)", err, string(output))
	}
	log.Printf("Firewall: Successfully applied rules for TCP %d and UDP %d", tcpPort, udpPort)
	return nil
}

// ruleMatches reports whether netsh output lists an allow rule covering
// both ports.
func ruleMatches(output string, tcpPort, udpPort int) bool {
	return strings.Contains(output, FirewallRuleName) &&
		strings.Contains(output, "Allow") &&
		strings.Contains(output, fmt.Sprint(tcpPort)) &&
		strings.Contains(output, fmt.Sprint(udpPort))
}

func firewallScript(tcpPort, udpPort int) string {
	return fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%[1]s' -ErrorAction SilentlyContinue; "+
			"New-NetFirewallRule -DisplayName '%[1]s' -Direction Inbound -LocalPort %[2]d -Protocol TCP -Action Allow -Profile Any; "+
			"New-NetFirewallRule -DisplayName '%[1]s' -Direction Inbound -LocalPort %[3]d -Protocol UDP -Action Allow -Profile Any",
		FirewallRuleName, tcpPort, udpPort,
	)
}
