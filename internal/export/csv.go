// Package export renders tabular API data as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"net/http"
)

// CSV streams a header row plus records to the response as an attachment.
func CSV(w http.ResponseWriter, filename string, header []string, records [][]string) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
