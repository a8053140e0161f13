package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchItems Phase = iota
	FetchDurations
	ExportCollection
)

func (p Phase) String() string {
	switch p {
	case FetchItems:
		return "fetch_items"
	case FetchDurations:
		return "fetch_durations"
	case ExportCollection:
		return "export_collection"
	default:
		return ""
	}
}

// sendProgress delivers update unless the channel is nil or full.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingItemsUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching: %s...", step, total, title),
	}
}

func durationsFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDurations,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ⚠ %s: exporting without durations (%v)", step, total, title, err),
	}
}

func exportCompletedUpdate(step, total int, res CollectionExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d videos, %d files)", step, total, res.Title, res.Items, len(res.Files)),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, res CollectionExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Title, res.Error),
		Data:    res,
	}
}
