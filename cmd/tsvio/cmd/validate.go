package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/store"
)

// errInvalidFile is returned when validation finds a malformed record
var errInvalidFile = errors.New("file is not valid")

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <schema> <file>",
	Short: "Check a UTF-8 record file against a schema",
	Long: `Decode every record of a UTF-8 record file with the given schema and report
the first malformed record. <schema> is a schema file or a name in the schema directory.

With --repair the file is truncated after the last well-formed record.
With --offset only the record starting at that byte offset is decoded and
printed as a JSON object, for example the offset reported by a failed run.

Examples:
  tsvio validate orders ./orders.tsv
  tsvio validate ./schemas/orders.yaml ./orders.tsv --repair
  tsvio validate orders ./orders.tsv --offset 13`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repair, _ := cmd.Flags().GetBool("repair")
		offset, _ := cmd.Flags().GetInt64("offset")

		sch, err := resolveSchema(configFrom(cmd), args[0])
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("offset") {
			line, err := recordAt(args[1], sch, offset)
			if err != nil {
				cmd.Printf("Invalid record at offset %d: %v\n", offset, err)
				return errInvalidFile
			}
			cmd.Println(string(line))
			return nil
		}

		if repair {
			result, err := store.Recover(args[1], sch)
			if err != nil {
				return err
			}
			loggerFrom(cmd).Debug("recovery finished",
				zap.Int64("validated", result.RecordsValidated),
				zap.Bool("truncated", result.Truncated),
				zap.Int64("recovery_ns", result.RecoveryTime))
			if result.Truncated {
				cmd.Printf("Truncated %s from %d to %d bytes: %v\n",
					args[1], result.FileSizeBefore, result.FileSizeAfter, result.FirstError)
			}
			cmd.Printf("%d records OK\n", result.RecordsValidated)
			return nil
		}

		records, offset, err := validateFile(args[1], sch)
		if err != nil {
			cmd.Printf("Invalid record at offset %d after %d good records: %v\n", offset, records, err)
			return errInvalidFile
		}
		cmd.Printf("%d records OK\n", records)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("repair", false, "Truncate the file after the last well-formed record")
	validateCmd.Flags().Int64("offset", 0, "Decode only the record starting at this byte offset")
	validateCmd.MarkFlagsMutuallyExclusive("repair", "offset")
}

// recordAt decodes the record of path starting at offset and returns it
// as JSON.
func recordAt(path string, sch *schema.Schema, offset int64) ([]byte, error) {
	reader, err := store.NewLogReader(store.LogReaderConfig{FilePath: path, Schema: sch})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	rec := sch.NewRecord()
	if err := reader.ReadAt(offset, rec); err != nil {
		return nil, err
	}
	return json.Marshal(rec.Map())
}

// validateFile counts the well-formed records of path. On a malformed
// record it also returns that record's start offset.
func validateFile(path string, sch *schema.Schema) (int64, int64, error) {
	reader, err := store.NewLogReader(store.LogReaderConfig{FilePath: path, Schema: sch})
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	it := reader.Iterator()
	defer it.Close()

	var records int64
	for it.Next() {
		records++
	}
	if err := it.Err(); err != nil {
		return records, it.Offset(), fmt.Errorf("record %d: %w", records+1, err)
	}
	return records, reader.Offset(), nil
}
