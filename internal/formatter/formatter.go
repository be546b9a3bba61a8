// package formatter provides functions to export the cached library to various formats (CSV, JSON, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/shared"
)

// LibraryExport bundles the cached library with its sync metadata for
// serialization.
type LibraryExport struct {
	Metadata *models.Metadata `json:"metadata,omitempty"`
	Tracks   []models.Track   `json:"tracks"`
}

// ExportToCSV converts a library export to CSV format with columns: ID, Name, Artist, Album, Duration, Popularity
func ExportToCSV(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "Duration", "Popularity"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Name,
			track.Artist,
			track.Album,
			strconv.Itoa(track.DurationMS),
			strconv.Itoa(track.Popularity),
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

// ExportToJSON converts a library export to pretty-printed JSON.
func ExportToJSON(export *LibraryExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ExportToMarkdown converts a library export to Markdown format.
func ExportToMarkdown(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Liked Songs\n\n")
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(export.Tracks)))
	if export.Metadata != nil && !export.Metadata.LastSyncedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Last synced**: %s\n", export.Metadata.LastSyncedAt.Format(time.RFC3339)))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range export.Tracks {
		duration := shared.FormatDuration(track.DurationMS)
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Name, albumPart, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a library export to plain text format.
func ExportToText(export *LibraryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Liked songs: %d tracks\n\n", len(export.Tracks)))
	for i, track := range export.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Name))
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of sync metadata (without tracks).
func ToMetadataJSON(meta *models.Metadata) ([]byte, error) {
	return shared.MarshalJSON(meta, true)
}

// ExportResult contains the paths of files created by WriteExport.
type ExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteExport writes a library export in the given format ("csv" or
// "json") with an accompanying metadata JSON file.
//
// Defaults to "library" as the base filename and creates
// {base}_tracks.{ext} and {base}_metadata.json.
func WriteExport(export *LibraryExport, format, baseFilepath string) (*ExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "library"
	}

	var (
		data []byte
		ext  string
		err  error
	)
	switch format {
	case "csv":
		data, err = ExportToCSV(export)
		ext = "csv"
	case "json", "":
		data, err = ExportToJSON(export)
		ext = "json"
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate export: %w", err)
	}

	tracksFile := fmt.Sprintf("%s_tracks.%s", baseFilepath, ext)
	if err := os.WriteFile(tracksFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	result := &ExportResult{TracksFile: tracksFile}

	if export.Metadata != nil {
		metadataJSON, err := ToMetadataJSON(export.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
		}

		metadataFile := baseFilepath + "_metadata.json"
		if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
			return nil, fmt.Errorf("failed to write metadata file: %w", err)
		}
		result.MetadataFile = metadataFile
	}

	return result, nil
}
