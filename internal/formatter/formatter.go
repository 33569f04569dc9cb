// package formatter renders recommendation runs in various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"spotify-cli/internal/models"
	"spotify-cli/internal/shared"
)

// Export formats accepted by [WriteExport].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// ExportToCSV converts a run's track listing to CSV format with columns: Position, ID, Title, Artist, Album, Duration
func ExportToCSV(run *models.RecRun, tracks []models.RunTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.TrackID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.DurationMS),
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

// ExportToMarkdown converts a run to Markdown format
func ExportToMarkdown(run *models.RecRun, tracks []models.RunTrack) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Recommendations Run #%d\n\n", run.Sequence()))

	buf.WriteString(fmt.Sprintf("**Generated**: %s\n", run.CreatedAt().Format("2006-01-02 15:04")))
	buf.WriteString(fmt.Sprintf("**Playlist**: %s\n", run.PlaylistID()))
	if run.SnapshotID() != "" {
		buf.WriteString(fmt.Sprintf("**Snapshot**: %s\n", run.SnapshotID()))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(tracks)))
	if run.SeedSummary() != "" {
		buf.WriteString(fmt.Sprintf("**Seeds**: `%s`\n", run.SeedSummary()))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range tracks {
		duration := shared.FormatDuration(track.DurationMS)
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a run to plain text format
func ExportToText(run *models.RecRun, tracks []models.RunTrack) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Recommendations run #%d\n", run.Sequence()))
	buf.WriteString(fmt.Sprintf("Generated: %s\n", run.CreatedAt().Format("2006-01-02 15:04")))
	buf.WriteString(fmt.Sprintf("Playlist: %s\n", run.PlaylistID()))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
	}

	return buf.Bytes(), nil
}

// WriteExport renders the run in the given format and writes it to path.
//
// An empty format falls back to plain text.
// Defaults to rec_run_{sequence}.{ext} in the working directory when path is empty.
func WriteExport(run *models.RecRun, tracks []models.RunTrack, format, path string) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)

	switch format {
	case FormatCSV:
		data, err = ExportToCSV(run, tracks)
		ext = "csv"
	case FormatMarkdown:
		data, err = ExportToMarkdown(run, tracks)
		ext = "md"
	case FormatText, "":
		data, err = ExportToText(run, tracks)
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: format must be csv, markdown or text", shared.ErrInvalidFlag)
	}
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("rec_run_%d.%s", run.Sequence(), ext)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
