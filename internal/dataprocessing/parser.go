package dataprocessing

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"sheetlens/pkg/contracts/domain"
)

// LoadOptions controls how a workbook is read.
type LoadOptions struct {
	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet string
}

// Workbook is the tabular content of one worksheet.
type Workbook struct {
	Sheet   string
	Sheets  []string
	Dataset *domain.Dataset
}

// ParseWorkbook reads an xlsx stream into a typed dataset. The first non
// blank row is the header; blank rows are skipped. Any failure to open or
// read the sheet is reported as ErrParse.
func ParseWorkbook(r io.Reader, opts LoadOptions) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}

	sheet := opts.Sheet
	if sheet == "" {
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("%w: sheet %q does not exist", ErrParse, sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", ErrParse, sheet, err)
	}

	sr := &sheetReader{
		f:      f,
		sheet:  sheet,
		styles: make(map[int]bool),
	}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		sr.date1904 = *props.Date1904
	}

	ds, err := sr.dataset(rows)
	if err != nil {
		return nil, err
	}

	slog.Debug("Parsed workbook",
		slog.String("sheet", sheet),
		slog.Int("columns", len(ds.Columns)),
		slog.Int("rows", ds.Len()))

	return &Workbook{Sheet: sheet, Sheets: sheets, Dataset: ds}, nil
}

// SheetNames lists the worksheets of an xlsx stream in workbook order.
func SheetNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

type sheetReader struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func (s *sheetReader) dataset(rows [][]string) (*domain.Dataset, error) {
	headerRow := -1
	width := 0
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if headerRow < 0 {
			headerRow = i
		}
		width = max(width, len(row))
	}
	if headerRow < 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrParse, s.sheet)
	}

	names := headerNames(rows[headerRow], width)

	// cells[c] holds column c top to bottom
	cells := make([][]domain.Value, width)
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		for c := 0; c < width; c++ {
			raw := ""
			if c < len(row) {
				raw = row[c]
			}
			v, err := s.cell(c+1, i+1, raw)
			if err != nil {
				return nil, err
			}
			cells[c] = append(cells[c], v)
		}
	}

	columns := make([]domain.Column, width)
	for c := range columns {
		typ := inferColumnType(cells[c])
		if typ == domain.ColumnText {
			for r, v := range cells[c] {
				cells[c][r] = asText(v)
			}
		}
		columns[c] = domain.Column{Name: names[c], Type: typ}
	}

	n := 0
	if width > 0 {
		n = len(cells[0])
	}
	out := make([][]domain.Value, n)
	for r := range out {
		out[r] = make([]domain.Value, width)
		for c := 0; c < width; c++ {
			out[r][c] = cells[c][r]
		}
	}
	return domain.NewDataset(columns, out)
}

// cell converts one raw cell using its stored type and number format.
func (s *sheetReader) cell(col, row int, raw string) (domain.Value, error) {
	if raw == "" {
		return domain.Missing(), nil
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return domain.Missing(), fmt.Errorf("%w: %v", ErrParse, err)
	}
	typ, err := s.f.GetCellType(s.sheet, name)
	if err != nil {
		return domain.Missing(), fmt.Errorf("%w: cell %s: %v", ErrParse, name, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return domain.Bool(b), nil
		}
		return domain.Text(raw), nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return domain.Date(t.UTC()), nil
		}
		if t, err := cast.ToTimeInDefaultLocationE(raw, time.UTC); err == nil {
			return domain.Date(t), nil
		}
		return domain.Text(raw), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return domain.Text(raw), nil
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return domain.Text(raw), nil
	}
	if s.dateStyled(name) {
		t, err := excelize.ExcelDateToTime(f, s.date1904)
		if err == nil {
			return domain.Date(t), nil
		}
	}
	return domain.Number(f), nil
}

func (s *sheetReader) dateStyled(cell string) bool {
	id, err := s.f.GetCellStyle(s.sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if isDate, ok := s.styles[id]; ok {
		return isDate
	}
	isDate := false
	if style, err := s.f.GetStyle(id); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		} else {
			isDate = isBuiltInDateFormat(style.NumFmt)
		}
	}
	s.styles[id] = isDate
	return isDate
}

// isBuiltInDateFormat reports whether a built-in number format id renders
// a date or time.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode inspects the first section of a custom format code.
// Quoted literals, bracketed modifiers and escaped characters are ignored.
func isDateFormatCode(code string) bool {
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			inBracket = c != ']'
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			b.WriteByte(c)
		}
	}
	s := strings.ToLower(b.String())
	if s == "general" || s == "" {
		return false
	}
	return strings.ContainsAny(s, "ydhs")
}

func inferColumnType(values []domain.Value) domain.ColumnType {
	seen := map[domain.ValueKind]bool{}
	for _, v := range values {
		if !v.IsMissing() {
			seen[v.Kind] = true
		}
	}
	if len(seen) == 0 {
		return domain.ColumnNumber
	}
	if len(seen) > 1 {
		return domain.ColumnText
	}
	switch {
	case seen[domain.KindNumber]:
		return domain.ColumnNumber
	case seen[domain.KindDate]:
		return domain.ColumnDate
	case seen[domain.KindBool]:
		return domain.ColumnBool
	default:
		return domain.ColumnText
	}
}

func asText(v domain.Value) domain.Value {
	switch v.Kind {
	case domain.KindNumber:
		return domain.Text(strconv.FormatFloat(v.Num, 'f', -1, 64))
	case domain.KindDate:
		return domain.Text(domain.FormatTimestamp(v.Time))
	case domain.KindBool:
		return domain.Text(strings.ToUpper(strconv.FormatBool(v.Bool)))
	}
	return v
}

// headerNames fills blank names with "Unnamed: i" and suffixes repeats
// with ".n".
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]bool, width)
	counts := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			base := name
			for {
				counts[base]++
				name = fmt.Sprintf("%s.%d", base, counts[base])
				if !seen[name] {
					break
				}
			}
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
