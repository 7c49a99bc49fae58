// Package api contains the request and response contracts of the SheetLens
// HTTP API. Version v1 is the current stable API version.
package api

// ChartQuery holds the chart route parameters
type ChartQuery struct {
	Kind   string `form:"kind" validate:"required,chartkind"`
	Format string `form:"format" validate:"omitempty,imageformat"`
}

// ExportQuery holds the export route parameters
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv xlsx CSV XLSX"`
}

// SheetsResponse lists the worksheets of an uploaded workbook
type SheetsResponse struct {
	Sheets []string `json:"sheets"`
}
