package dataprocessing

import "errors"

// Sentinel errors returned by the analysis pipeline. Callers match them
// with errors.Is; the returned errors wrap them with detail.
var (
	// ErrParse means the upload could not be read as a workbook.
	ErrParse = errors.New("workbook could not be parsed")

	// ErrNoDateColumn means no column could serve as the date column.
	ErrNoDateColumn = errors.New("no date column available")

	// ErrNoValidDates means the chosen date column held no parseable dates.
	ErrNoValidDates = errors.New("date column contains no valid dates")

	// ErrColumnNotFound means a requested column does not exist.
	ErrColumnNotFound = errors.New("column not found")

	// ErrInvalidRange means the start date is after the end date.
	ErrInvalidRange = errors.New("start date is after end date")

	// ErrEmptyNumericSet means the filtered data has no numeric columns.
	ErrEmptyNumericSet = errors.New("no numeric columns to analyze")

	// ErrInvalidSeries means the requested series is not a numeric column.
	ErrInvalidSeries = errors.New("series is not a numeric column")
)

// NoticeEmptyNumericSet is the notice code raised for ErrEmptyNumericSet.
const NoticeEmptyNumericSet = "EMPTY_NUMERIC_SET"
