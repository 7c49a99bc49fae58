// Package shared holds helpers used by more than one SheetLens package.
//
// The testutil subpackage provides in-memory workbook fixtures built with
// excelize and an slog handler that captures records for assertions:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    workbook := testutil.TenDayWorkbook(t)
//	    ...
//	    assert.True(t, logs.HasMessage("Analysis completed"))
//	}
//
// Nothing here may import business logic packages.
package shared
