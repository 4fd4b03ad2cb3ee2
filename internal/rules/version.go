package rules

import (
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
)

var windowsVersion = regexp.MustCompile(`\d+\.\d+\.\d+`)

// osVersion returns the release string matched by os.version patterns ("10.0.19045", "6.5.0-generic").
func osVersion() string {
	switch runtime.GOOS {
	case "linux":
		if data, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			return strings.TrimSpace(string(data))
		}
	case "windows":
		if out, err := exec.Command("cmd", "/c", "ver").Output(); err == nil {
			return windowsVersion.FindString(string(out))
		}
	}

	if out, err := exec.Command("uname", "-r").Output(); err == nil {
		return strings.TrimSpace(string(out))
	}
	return ""
}
