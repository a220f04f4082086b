package triage

import (
	"fmt"
	"sort"
	"strings"

	"barangay/backend/internal/models"
)

// FilterAll disables a filter.
const FilterAll = "ALL"

// SortOrder selects the queue ordering.
type SortOrder string

const (
	SortPriority SortOrder = "PRIORITY"
	SortDateDesc SortOrder = "DATE_DESC"
	SortDateAsc  SortOrder = "DATE_ASC"
)

// ParseSortOrder accepts the three orderings, case-insensitive. Empty means PRIORITY.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToUpper(strings.TrimSpace(s))); o {
	case "":
		return SortPriority, nil
	case SortPriority, SortDateDesc, SortDateAsc:
		return o, nil
	default:
		return "", &ValidationError{Field: "sort", Message: fmt.Sprintf("unknown sort order %q", s)}
	}
}

// Filters narrow the queue. Empty or "ALL" disables a filter.
type Filters struct {
	Status   string
	Urgency  string
	Category string
}

func (f Filters) match(c *models.Complaint) bool {
	switch f.Status {
	case "", FilterAll:
		if c.Status == models.StatusSpam {
			return false
		}
	default:
		if string(c.Status) != f.Status {
			return false
		}
	}

	if f.Urgency != "" && f.Urgency != FilterAll {
		if c.AIAnalysis == nil || string(c.AIAnalysis.UrgencyLevel) != f.Urgency {
			return false
		}
	}

	if f.Category != "" && f.Category != FilterAll && c.Category != f.Category {
		return false
	}
	return true
}

// SelectAndSort returns the complaints passing filters in the requested
// order. The input slice is not modified.
func SelectAndSort(complaints []models.Complaint, filters Filters, order SortOrder) []models.Complaint {
	out := make([]models.Complaint, 0, len(complaints))
	for i := range complaints {
		if filters.match(&complaints[i]) {
			out = append(out, complaints[i])
		}
	}

	var less func(a, b *models.Complaint) bool
	switch order {
	case SortDateDesc:
		less = func(a, b *models.Complaint) bool { return a.SubmittedAt.After(b.SubmittedAt) }
	case SortDateAsc:
		less = func(a, b *models.Complaint) bool { return a.SubmittedAt.Before(b.SubmittedAt) }
	default:
		less = func(a, b *models.Complaint) bool {
			ta, tb := closedForQueue(a.Status), closedForQueue(b.Status)
			if ta != tb {
				return !ta
			}
			return priorityOf(a) > priorityOf(b)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

// closedForQueue partitions the PRIORITY ordering. SPAM is hidden by the
// default filter and sorts with the open complaints when shown.
func closedForQueue(s models.ComplaintStatus) bool {
	return s == models.StatusResolved || s == models.StatusDismissed
}

func priorityOf(c *models.Complaint) int {
	if c.AIAnalysis == nil {
		return 0
	}
	return c.AIAnalysis.PriorityScore
}

// Categories returns the distinct non-empty categories of complaints, sorted.
func Categories(complaints []models.Complaint) []string {
	seen := make(map[string]struct{})
	for _, c := range complaints {
		if c.Category != "" {
			seen[c.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
