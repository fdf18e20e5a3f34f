package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

func TestRecover(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name      string
		content   string
		validated int64
		truncated bool
		sizeAfter int
	}{
		{"clean file", threeRecords, 3, false, len(threeRecords)},
		{"empty file", "", 0, false, 0},
		{"torn tail", threeRecords + "4\tfou", 3, true, len(threeRecords)},
		{"torn escape", threeRecords + "4\tfour\\", 3, true, len(threeRecords)},
		{"garbage in the middle", "1\tone\t\\N\n#\n" + threeRecords, 1, true, len("1\tone\t\\N\n")},
		{"first record broken", "one\n", 0, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := writeFile(t, tt.content)

			result, err := Recover(filePath, s)
			require.NoError(t, err)
			assert.Equal(t, tt.validated, result.RecordsValidated)
			assert.Equal(t, tt.truncated, result.Truncated)
			assert.Equal(t, int64(len(tt.content)), result.FileSizeBefore)
			assert.Equal(t, int64(tt.sizeAfter), result.FileSizeAfter)
			if tt.truncated {
				assert.ErrorIs(t, result.FirstError, tsv.ErrFormat)
			} else {
				assert.NoError(t, result.FirstError)
			}

			info, err := os.Stat(filePath)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.sizeAfter), info.Size())
		})
	}
}

func TestRecover_MissingFile(t *testing.T) {
	result, err := Recover(filepath.Join(t.TempDir(), "missing.tsv"), testSchema(t))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.RecordsValidated)
	assert.Equal(t, int64(0), result.FileSizeAfter)
}

func TestRecover_ThenAppend(t *testing.T) {
	s := testSchema(t)
	filePath := writeFile(t, "1\tone\t\\N\n2\ttw")

	_, err := Recover(filePath, s)
	require.NoError(t, err)

	writer, err := NewLogWriter(LogWriterConfig{FilePath: filePath, Schema: s})
	require.NoError(t, err)
	_, err = writer.Put(testRecord(t, s, 2, "two"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "1\tone\t\\N\n2\ttwo\t\\N\n", string(data))
}
