// package formatter renders recommendation results for CLI output (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"flowbeat/internal/shared"
	"flowbeat/internal/spotify"
)

// Mix is a rendered recommendation set.
type Mix struct {
	Name        string          `json:"name"`
	Explanation string          `json:"explanation,omitempty"`
	Tracks      []spotify.Track `json:"tracks"`
}

// ToCSV converts a Mix to CSV format with columns: ID, Title, Artists, Album, Duration, URI
func ToCSV(mix *Mix) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range mix.Tracks {
		record := []string{
			track.ID,
			track.Name,
			track.ArtistNames(),
			track.Album.Name,
			strconv.Itoa(track.DurationMS),
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a Mix to Markdown format
func ToMarkdown(mix *Mix) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", mix.Name))

	if mix.Explanation != "" {
		buf.WriteString(fmt.Sprintf("%s\n\n", mix.Explanation))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(mix.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range mix.Tracks {
		duration := ""
		if track.DurationMS > 0 {
			duration = fmt.Sprintf(" [%s]", shared.FormatDuration(track.DurationMS))
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.ArtistNames(), track.Name, duration))
	}

	return buf.Bytes()
}

// ToText converts a Mix to plain text format
func ToText(mix *Mix) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Mix: %s\n", mix.Name))
	if mix.Explanation != "" {
		buf.WriteString(fmt.Sprintf("Why: %s\n", mix.Explanation))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(mix.Tracks)))

	for i, track := range mix.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.ArtistNames(), track.Name))
	}

	return buf.Bytes()
}

// ToJSON converts a Mix to indented JSON
func ToJSON(mix *Mix) ([]byte, error) {
	output, err := json.MarshalIndent(mix, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return output, nil
}

// Write renders a Mix in the named format and writes it to path, creating
// parent directories as needed. Supported formats: json, csv, markdown, text.
func Write(mix *Mix, format, path string) error {
	var (
		output []byte
		err    error
	)

	switch format {
	case "json":
		output, err = ToJSON(mix)
	case "csv":
		output, err = ToCSV(mix)
	case "markdown", "md":
		output = ToMarkdown(mix)
	case "text", "txt", "":
		output = ToText(mix)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, output, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	return nil
}
