// Package cli formats command output for the tansaku binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	accent  = color.New(color.FgGreen, color.Bold).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	fail    = color.New(color.FgRed, color.Bold).SprintFunc()
)

// SearchResponse is the envelope written for a search command.
type SearchResponse struct {
	Query       string               `json:"query"`
	Validation  models.Validation    `json:"validation"`
	QueryTimeMS int64                `json:"query_time_ms"`
	Results     []models.ScoredChunk `json:"results"`
}

// WriteSearchResults writes the response to w in the given format.
func WriteSearchResults(w io.Writer, response *SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	writeSearchResultsText(w, response)
	return nil
}

func writeSearchResultsText(w io.Writer, response *SearchResponse) {
	if !response.Validation.IsValid && len(response.Results) == 0 {
		fmt.Fprintf(w, "%s query %q is outside the supported domain (%s)\n",
			warn("no search:"), response.Query, response.Validation.Reason)
		return
	}
	fmt.Fprintf(w, "\n%s %d results in %dms\n\n",
		heading(fmt.Sprintf("%q:", response.Query)), len(response.Results), response.QueryTimeMS)
	for _, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank %d | Score %.4f | %s\n", r.Rank, r.Score, accent(r.ChunkID))
		fmt.Fprintf(w, "Source: %s (chunk %d, %d tokens)\n", r.Source, r.ChunkIndex, r.TokenCount)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Text, 300))
	}
	if len(response.Results) == 0 {
		fmt.Fprintf(w, "%s\n", warn("no chunks matched above the score threshold"))
	}
}

// WriteValidation writes a query validation verdict.
func WriteValidation(w io.Writer, query string, v models.Validation, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Query      string            `json:"query"`
			Validation models.Validation `json:"validation"`
		}{query, v})
	}
	verdict := accent("in domain")
	if !v.IsValid {
		verdict = fail("out of domain")
	}
	fmt.Fprintf(w, "%q: %s (%s)\n", query, verdict, v.Reason)
	return nil
}

// WriteSources lists the sources in the loaded snapshot.
func WriteSources(w io.Writer, sources []string, format OutputFormat) error {
	if format == OutputJSON {
		return json.NewEncoder(w).Encode(struct {
			Sources []string `json:"sources"`
		}{sources})
	}
	fmt.Fprintf(w, "%s (%d)\n", heading("sources"), len(sources))
	for _, s := range sources {
		fmt.Fprintf(w, "  %s\n", s)
	}
	return nil
}

// WriteChunks lists the chunks of one source.
func WriteChunks(w io.Writer, source string, chunks []models.Chunk, format OutputFormat) error {
	if format == OutputJSON {
		return json.NewEncoder(w).Encode(struct {
			Source string         `json:"source"`
			Chunks []models.Chunk `json:"chunks"`
		}{source, chunks})
	}
	fmt.Fprintf(w, "%s %s (%d chunks)\n", heading("source"), source, len(chunks))
	for _, c := range chunks {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%s (%d tokens)\n%s\n", accent(c.ChunkID), c.TokenCount, utils.Truncate(c.Text, 200))
	}
	return nil
}

// WriteSnapshotInfo writes the loaded snapshot's provenance.
func WriteSnapshotInfo(w io.Writer, info models.SnapshotInfo, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(w, "%s\n", heading("snapshot"))
	fmt.Fprintf(w, "  build:      %s\n", info.BuildID)
	fmt.Fprintf(w, "  built at:   %s\n", info.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  encoder:    %s (%d dimensions)\n", info.Encoder, info.Dimension)
	fmt.Fprintf(w, "  index:      %s\n", info.IndexKind)
	fmt.Fprintf(w, "  chunks:     %d\n", info.ChunkCount)
	return nil
}
