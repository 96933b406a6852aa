// Package cli parses the binary's argv into a run mode and its
// mode-specific target, mirroring the args_app_mode parsing style:
// args[0] is the executable path, args[1] selects the mode.
package cli

import (
	"fmt"
	"strings"

	"rush/domain/mode"
)

// ParseMode extracts the run mode from argv. args must include the
// executable path at index 0, matching os.Args.
func ParseMode(args []string) (mode.Mode, error) {
	if len(args) < 1 || args[0] == "" {
		return mode.Unknown, mode.NewInvalidExecPathProvided()
	}
	if len(args) < 2 {
		return mode.Unknown, mode.NewNoModeProvided()
	}
	switch args[1] {
	case "c", "client":
		return mode.Client, nil
	case "s", "server":
		return mode.Server, nil
	default:
		return mode.Unknown, mode.NewInvalidModeProvided(args[1])
	}
}

// ParseClientTarget extracts the "user@host" positional argument client
// mode requires.
func ParseClientTarget(args []string) (username, host string, err error) {
	if len(args) < 3 {
		return "", "", fmt.Errorf("usage: %s c user@host", execName(args))
	}
	target := args[2]
	parts := strings.SplitN(target, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected user@host, got %q", target)
	}
	return parts[0], parts[1], nil
}

func execName(args []string) string {
	if len(args) == 0 {
		return "rush"
	}
	return args[0]
}
