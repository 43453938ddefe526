package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docread/internal/document"
)

// CSVParser renders each data row as "header: value" pairs, in batches
// introduced by the header line.
type CSVParser struct {
	BatchSize int
}

func (p *CSVParser) Parse(ctx context.Context, r io.Reader, filename string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &document.UnsupportedInputError{Filename: filename, Err: fmt.Errorf("parse csv: %w", err)}
	}
	if len(records) == 0 {
		return linear(filename, ""), nil
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	headers := records[0]
	dataRows := records[1:]

	var batches []string
	for i := 0; i < len(dataRows); i += batchSize {
		end := min(i+batchSize, len(dataRows))

		var text strings.Builder
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n")
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}
		batches = append(batches, strings.TrimSpace(text.String()))
	}
	if len(batches) == 0 {
		batches = []string{"Headers: " + strings.Join(headers, ", ")}
	}
	return linear(filename, document.Join(batches)), nil
}
