package domain

import "time"

// QueryResult is the response of a filtered user query. It is built fresh
// for every request and never persisted.
type QueryResult struct {
	Users     []UserView `json:"users"`
	Count     int        `json:"count"     example:"3"`
	S3File    string     `json:"s3_file"   example:"queries/20250101_120000_01JGZ8Q8X3M7Y4N0F2B6C9D1E5.json"`
	Timestamp time.Time  `json:"timestamp"`
}

// ArchivalRecord is the JSON document written to the object store for each
// query. It is immutable once written.
type ArchivalRecord struct {
	Timestamp       time.Time      `json:"timestamp"`
	QueryParameters FilterCriteria `json:"query_parameters"`
	Results         []UserView     `json:"results"`
	ResultCount     int            `json:"result_count"`
}

// NewArchivalRecord assembles the document for a query and its results.
func NewArchivalRecord(at time.Time, criteria FilterCriteria, results []UserView) ArchivalRecord {
	if results == nil {
		results = []UserView{}
	}
	return ArchivalRecord{
		Timestamp:       at.UTC(),
		QueryParameters: criteria,
		Results:         results,
		ResultCount:     len(results),
	}
}
