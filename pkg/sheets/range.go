package sheets

import (
	"fmt"
	"strings"
)

// ColumnLetter converts a 1-indexed column number to spreadsheet letters:
// 1 -> "A", 26 -> "Z", 27 -> "AA". Base-26 with no zero digit.
func ColumnLetter(col int) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// RangeRef builds a fully-qualified A1 range with the sheet name single-quoted
// so names containing spaces or special characters address correctly.
func RangeRef(sheetName, a1 string) string {
	quoted := "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
	if a1 == "" {
		return quoted
	}
	return quoted + "!" + a1
}

// GridRange covers rows 1..rowCount over colCount columns, e.g. A1:L120.
func GridRange(sheetName string, colCount, rowCount int) string {
	return RangeRef(sheetName, fmt.Sprintf("A1:%s%d", ColumnLetter(colCount), rowCount))
}
