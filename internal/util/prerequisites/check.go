// Package prerequisites provides utilities for checking the external tools
// the driver backends shell out to.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string
}

// CUPSTools returns the tools the CUPS backend requires.
func CUPSTools() []Tool {
	return []Tool{
		{
			Name:        "lpadmin",
			Required:    true,
			Description: "Required for creating and binding print queues",
			InstallURL:  "https://www.cups.org/",
		},
		{
			Name:        "lpstat",
			Required:    true,
			Description: "Required for probing the scheduler and verifying queues",
			InstallURL:  "https://www.cups.org/",
		},
		{
			Name:        "lpinfo",
			Required:    true,
			Description: "Required for listing installed driver models",
			InstallURL:  "https://www.cups.org/",
		},
	}
}

// WindowsTools returns the tools the Windows backend requires.
func WindowsTools() []Tool {
	return []Tool{
		{
			Name:        "powershell.exe",
			Required:    true,
			Description: "Required for driver registration and queue binding",
			InstallURL:  "https://learn.microsoft.com/powershell/",
		},
	}
}

// OptionalTools returns tools that are useful but not required.
func OptionalTools() []Tool {
	return []Tool{
		{
			Name:        "lpoptions",
			Required:    false,
			Description: "Useful for inspecting queue defaults",
			InstallURL:  "https://www.cups.org/",
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := exec.LookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			// Try to get version (best effort)
			result.Version = getToolVersion(tool.Name)
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckForBackend checks the tools the named backend shells out to.
func CheckForBackend(kind string) *CheckResults {
	switch kind {
	case "windows":
		return Check(WindowsTools())
	default:
		tools := CUPSTools()
		tools = append(tools, OptionalTools()...)
		return Check(tools)
	}
}

// getToolVersion attempts to get the version of a tool.
// Returns empty string if version cannot be determined.
func getToolVersion(name string) string {
	// Common version flags to try
	versionFlags := []string{"--version", "version", "-v"}

	for _, flag := range versionFlags {
		// #nosec G204 - name comes from trusted Tool definitions, not user input
		cmd := exec.Command(name, flag)
		output, err := cmd.Output()
		if err == nil {
			// Return first line of output, trimmed
			lines := strings.Split(string(output), "\n")
			if len(lines) > 0 {
				return strings.TrimSpace(lines[0])
			}
		}
	}

	return ""
}
