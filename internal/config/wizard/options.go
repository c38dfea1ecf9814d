package wizard

import "github.com/charmbracelet/huh"

// BackendOptions lists the selectable OS backends.
var BackendOptions = []huh.Option[string]{
	huh.NewOption("auto (detect from platform)", "auto"),
	huh.NewOption("cups (lpadmin/lpstat)", "cups"),
	huh.NewOption("windows (spooler + setup API)", "windows"),
}

// LayoutOptions lists the archive layout hints.
var LayoutOptions = []huh.Option[string]{
	huh.NewOption("flat (driver files at the archive root)", "flat"),
	huh.NewOption("nested (driver files in a subdirectory)", "nested"),
}
