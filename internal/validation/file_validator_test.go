package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlens/internal/shared/testutil"
)

func TestFileValidator_ValidateWorkbook(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		maxBytes      int64
		errorContains string
	}{
		{
			name: "valid workbook",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "data.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))
				return path
			},
		},
		{
			name: "upper case extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "DATA.XLSX")
				require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))
				return path
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.xlsx")
			},
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "book.xlsx")
				require.NoError(t, os.Mkdir(dir, 0o755))
				return dir
			},
			errorContains: "is a directory",
		},
		{
			name: "legacy xls",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "data.xls")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
				return path
			},
			errorContains: "not an xlsx workbook",
		},
		{
			name: "office lock file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "~$data.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
				return path
			},
			errorContains: "temporary Excel file",
		},
		{
			name: "too large",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "big.xlsx")
				require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))
				return path
			},
			maxBytes:      10,
			errorContains: "limit is 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			v := NewFileValidator(tt.maxBytes, logger)

			err := v.ValidateWorkbook(tt.setupFunc(t))
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(0, logger)

	t.Run("creates nested directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		require.NoError(t, v.ValidateOutputDirectory(dir))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "probe file is removed")
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "out")
		require.NoError(t, os.WriteFile(file, nil, 0o644))

		err := v.ValidateOutputDirectory(file)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create output directory")
	})
}

func TestNewFileValidatorDefaultsLogger(t *testing.T) {
	v := NewFileValidator(0, nil)
	assert.NotNil(t, v.logger)
}
