package auditlog

import (
	"strings"

	"barangay/backend/internal/models"
)

// CategoryAll disables the category filter.
const CategoryAll = "ALL"

// Filter keeps the logs whose details, actor or action contain search
// (case-insensitive) and whose category matches. Order is preserved.
func Filter(logs []models.SystemLog, search string, category string) []models.SystemLog {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.SystemLog, 0, len(logs))
	for _, l := range logs {
		if category != "" && category != CategoryAll && string(l.Category) != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(l.Details), needle) &&
			!strings.Contains(strings.ToLower(l.Actor), needle) &&
			!strings.Contains(strings.ToLower(string(l.Action)), needle) {
			continue
		}
		out = append(out, l)
	}
	return out
}
