// package formatter exports the display list to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
)

// Export is a display list together with the personal state shown next to it.
type Export struct {
	Collection models.Collection        `json:"collection"`
	Items      []models.Item            `json:"-"`
	ViewCounts map[string]int           `json:"-"`
	Favorites  map[string]bool          `json:"-"`
	Durations  map[string]time.Duration `json:"-"`
	Sort       string                   `json:"sort,omitempty"`
	ExportedAt time.Time                `json:"exported_at"`
}

// Row is one exported item.
type Row struct {
	Position  int       `json:"position"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Views     int       `json:"views"`
	Favorite  bool      `json:"favorite"`
	Duration  string    `json:"duration,omitempty"`
	Added     time.Time `json:"added_at"`
	Published time.Time `json:"published_at"`
	URL       string    `json:"url"`
}

// Rows flattens the export into display order.
func (e *Export) Rows() []Row {
	rows := make([]Row, len(e.Items))
	for i, item := range e.Items {
		rows[i] = Row{
			Position:  i + 1,
			ID:        item.ID,
			Title:     item.Title,
			Views:     e.ViewCounts[item.ID],
			Favorite:  e.Favorites[item.ID],
			Added:     item.AddedAt,
			Published: item.PublishedAt,
			URL:       item.URL(),
		}
		if d, ok := e.Durations[item.ID]; ok {
			rows[i].Duration = shared.FormatClock(d)
		}
	}
	return rows
}

// Total sums the known durations of the exported items.
func (e *Export) Total() time.Duration {
	var total time.Duration
	for _, item := range e.Items {
		total += e.Durations[item.ID]
	}
	return total
}

func (e *Export) title() string {
	if e.Collection.Title != "" {
		return e.Collection.Title
	}
	return e.Collection.ID
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// ExportToCSV writes one row per item with columns: Position, ID, Title, Views, Favorite, Duration, Added, Published, URL
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Views", "Favorite", "Duration", "Added", "Published", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range export.Rows() {
		record := []string{
			strconv.Itoa(row.Position),
			row.ID,
			row.Title,
			strconv.Itoa(row.Views),
			strconv.FormatBool(row.Favorite),
			row.Duration,
			date(row.Added),
			date(row.Published),
			row.URL,
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

// ExportToMarkdown renders the export as a Markdown document with an optional cover image.
func ExportToMarkdown(export *Export, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.title())

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Videos**: %d\n", len(export.Items))
	if total := export.Total(); total > 0 {
		fmt.Fprintf(&buf, "**Total duration**: %s\n", shared.FormatClock(total))
	}
	if export.Sort != "" {
		fmt.Fprintf(&buf, "**Sort**: %s\n", export.Sort)
	}
	buf.WriteString("\n## Videos\n\n")

	for _, row := range export.Rows() {
		star := ""
		if row.Favorite {
			star = " ★"
		}
		extra := []string{fmt.Sprintf("%d views", row.Views)}
		if row.Duration != "" {
			extra = append(extra, row.Duration)
		}
		fmt.Fprintf(&buf, "%d. [%s](%s)%s (%s)\n", row.Position, escapeMarkdown(row.Title), row.URL, star, strings.Join(extra, ", "))
	}

	return buf.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer("[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// ExportToText renders the export as plain text.
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.title())
	fmt.Fprintf(&buf, "Videos: %d\n", len(export.Items))
	if total := export.Total(); total > 0 {
		fmt.Fprintf(&buf, "Duration: %s\n", shared.FormatClock(total))
	}
	buf.WriteString("\n")

	for _, row := range export.Rows() {
		fmt.Fprintf(&buf, "%d. %s [%d]", row.Position, row.Title, row.Views)
		if row.Favorite {
			buf.WriteString(" *")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

type jsonExport struct {
	*Export
	Total string `json:"total_duration,omitempty"`
	Rows  []Row  `json:"items"`
}

// ExportToJSON encodes the export with one object per item.
func ExportToJSON(export *Export, pretty bool) ([]byte, error) {
	doc := jsonExport{Export: export, Rows: export.Rows()}
	if total := export.Total(); total > 0 {
		doc.Total = shared.FormatClock(total)
	}
	return shared.MarshalJSON(doc, pretty)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("failed to create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Format is an export file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its usual file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// Render encodes the export in format f.
func Render(export *Export, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export, "")
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export, true)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, f)
	}
}

// Write renders the export in format f to w.
func Write(w io.Writer, export *Export, f Format) error {
	data, err := Render(export, f)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", f, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteExport renders the export and writes it to path.
//
// Defaults to {collection id}{extension} in the working directory.
func WriteExport(export *Export, f Format, path string) (string, error) {
	if path == "" {
		path = export.Collection.ID + f.Extension()
	}

	data, err := Render(export, f)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if err := WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports to a dedicated directory holding README.md and, when imageURL
// is set and downloads, cover.jpg.
//
// Directory name defaults to the collection ID.
func WriteMarkdownExport(ctx context.Context, export *Export, outputDir, imageURL string, client *http.Client) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Collection.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(ctx, client, imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := WriteFile(coverImagePath, imageData); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := WriteFile(mdFile, mdData); err != nil {
		return nil, err
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}
