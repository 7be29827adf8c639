// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package querylog

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

// Stats summarizes a set of entries.
type Stats struct {
	TotalQueries       int            `json:"total_queries"`
	Successful         int            `json:"successful_queries"`
	Failed             int            `json:"failed_queries"`
	SuccessRate        float64        `json:"success_rate"`
	AvgExecutionMillis float64        `json:"avg_execution_time_ms"`
	ByDataset          map[int64]int  `json:"queries_by_dataset"`
	ByErrorKind        map[string]int `json:"failures_by_kind"`
}

// Aggregate computes Stats over the entries executed at or after since. A zero
// since includes everything.
func Aggregate(entries []Entry, since time.Time) Stats {
	st := Stats{ByDataset: map[int64]int{}, ByErrorKind: map[string]int{}}
	var totalMillis int64
	var timed int
	for _, e := range entries {
		if !since.IsZero() && e.ExecutedAt.Before(since) {
			continue
		}
		st.TotalQueries++
		if e.Success {
			st.Successful++
		} else {
			st.Failed++
			if e.ErrorKind != "" {
				st.ByErrorKind[e.ErrorKind]++
			}
		}
		if e.DatasetID != 0 {
			st.ByDataset[e.DatasetID]++
		}
		if e.ExecutionMillis > 0 {
			totalMillis += e.ExecutionMillis
			timed++
		}
	}
	if st.TotalQueries > 0 {
		st.SuccessRate = float64(st.Successful) / float64(st.TotalQueries) * 100
	}
	if timed > 0 {
		st.AvgExecutionMillis = float64(totalMillis) / float64(timed)
	}
	return st
}

// ReadFile loads entries from a JSON-lines log. Malformed lines are skipped; a
// missing file yields no entries.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if json.Unmarshal(sc.Bytes(), &e) == nil {
			out = append(out, e)
		}
	}
	return out, sc.Err()
}

// OpenFile opens path for appending with 0600 permissions.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
