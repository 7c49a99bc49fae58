package config

// Application constants
const (
	AppName = "SheetLens"

	// Version is overridden at build time with -ldflags "-X sheetlens/internal/config.Version=..."
	DefaultVersion = "dev"
)

// Version is the running build's version string.
var Version = DefaultVersion

// Upload form fields
const (
	FormFieldFile        = "file"
	FormFieldSheet       = "sheet"
	FormFieldDateColumn  = "date_column"
	FormFieldStart       = "start"
	FormFieldEnd         = "end"
	FormFieldSeries      = "series"
	FormFieldPreviewRows = "preview_rows"
)
