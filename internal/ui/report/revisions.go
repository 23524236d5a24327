package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gridnote/internal/data/history"
)

func RenderRevisionsTSV(name string, revisions []history.Revision) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Document\tRevision\tTimestamp\tCells\tFilled\tDeltaFilled\n")
	prevFilled := 0
	for i, rev := range revisions {
		delta := 0
		if i > 0 {
			delta = rev.FilledCount - prevFilled
		}
		prevFilled = rev.FilledCount
		buf.WriteString(fmt.Sprintf("%s\t%d\t%s\t%d\t%d\t%d\n",
			name,
			rev.Number,
			rev.Timestamp.UTC().Format(time.RFC3339),
			rev.CellCount,
			rev.FilledCount,
			delta,
		))
	}

	return []byte(buf.String()), nil
}

func RenderRevisionsJSON(name string, revisions []history.Revision) ([]byte, error) {
	return json.MarshalIndent(struct {
		Document  string             `json:"document"`
		Revisions []history.Revision `json:"revisions"`
	}{Document: name, Revisions: revisions}, "", "  ")
}
