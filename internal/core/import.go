package core

// ImportStatus classifies the outcome of a single record in a bulk import.
type ImportStatus string

const (
	ImportInserted  ImportStatus = "inserted"
	ImportDuplicate ImportStatus = "duplicate"
	ImportFailed    ImportStatus = "failed"
)

// ImportResult is the per-record outcome of a bulk import. One bad record
// never blocks the rest of the batch.
type ImportResult struct {
	ExternalID  string
	Status      ImportStatus
	Transaction Transaction
	Err         error
}

// ImportSummary aggregates per-record results.
type ImportSummary struct {
	Inserted   int
	Duplicates int
	Failed     int
	Results    []ImportResult
}

// Summarize tallies a result list into an ImportSummary.
func Summarize(results []ImportResult) ImportSummary {
	s := ImportSummary{Results: results}
	for _, r := range results {
		switch r.Status {
		case ImportInserted:
			s.Inserted++
		case ImportDuplicate:
			s.Duplicates++
		case ImportFailed:
			s.Failed++
		}
	}
	return s
}
