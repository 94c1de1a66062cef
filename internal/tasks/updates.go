package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchCollections Phase = iota
	ExportCollection
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchCollections:
		return "fetch_collections"
	case ExportCollection:
		return "export_collection"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchingCollectionsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCollections,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Fetching %d collections...", total),
	}
}

func exportCompletedUpdate(step, total int, kind string, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d rows)", step, total, kind, rows),
	}
}

func exportFailedUpdate(step, total int, kind string, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, kind, reason),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
