// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package semantics

import "strings"

var userKeys = []string{"USER_ID", "RESPONDENT_ID", "PANELIST_ID", "USER "}

// WeightingHints returns advisory notes about using sql for weighted estimates.
// They never block execution.
func WeightingHints(sql string) []string {
	upper := strings.ToUpper(sql)

	hasWeight := false
	for _, p := range weightPatterns {
		if strings.Contains(upper, strings.ToUpper(p)) {
			hasWeight = true
			break
		}
	}
	if !hasWeight {
		return []string{"Query does not include a weight column. Add one for accurate population estimates."}
	}

	if strings.Contains(upper, "GROUP BY") {
		for _, k := range userKeys {
			if strings.Contains(upper, k) {
				return nil
			}
		}
		return []string{"Ensure you are aggregating at user level, not event level."}
	}
	return nil
}
