package issuesync

import (
	"strings"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

var statusLabels = map[model.Status]string{
	model.StatusBacklog:    "backlog",
	model.StatusTodo:       "to do",
	model.StatusInProgress: "in progress",
	model.StatusDone:       "done",
}

// labelPrecedence is checked in order; the first status whose label is present wins.
var labelPrecedence = []model.Status{model.StatusDone, model.StatusInProgress, model.StatusTodo, model.StatusBacklog}

// LabelForStatus returns the tracker label that encodes s.
func LabelForStatus(s model.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return statusLabels[model.StatusBacklog]
}

// StatusFromLabels resolves a label set to a column: done > in progress >
// to do > backlog, defaulting to backlog when no status label is present.
func StatusFromLabels(labels []string) model.Status {
	present := make(map[string]bool, len(labels))
	for _, l := range labels {
		present[strings.ToLower(strings.TrimSpace(l))] = true
	}
	for _, s := range labelPrecedence {
		if present[statusLabels[s]] {
			return s
		}
	}
	return model.StatusBacklog
}

func isStatusLabel(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, l := range statusLabels {
		if n == l {
			return true
		}
	}
	return false
}

// replaceStatusLabel keeps every non-status label and appends the one for s.
func replaceStatusLabel(labels []string, s model.Status) []string {
	out := make([]string, 0, len(labels)+1)
	for _, l := range labels {
		if !isStatusLabel(l) {
			out = append(out, l)
		}
	}
	return append(out, LabelForStatus(s))
}
