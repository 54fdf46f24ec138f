// package formatter renders stored songs and delivery history as CSV, Markdown, JSON or text tables,
// and reads track lists for cache warming.
package formatter

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/musicvid/internal/models"
	"github.com/desertthunder/musicvid/internal/shared"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates a user supplied format name. An empty name is plain text.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", "text", FormatText:
		return FormatText, nil
	case "md", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
	}
}

// songRecord is the JSON shape of a song.
type songRecord struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	YouTubeID string    `json:"youtube_id"`
	WatchURL  string    `json:"watch_url"`
	CreatedAt time.Time `json:"created_at"`
}

// deliveryRecord is the JSON shape of a delivery.
type deliveryRecord struct {
	ID          string    `json:"id"`
	ViewerID    string    `json:"viewer_id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	YouTubeID   string    `json:"youtube_id"`
	Source      string    `json:"source"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// WriteSongs renders songs to w in format.
func WriteSongs(w io.Writer, songs []*models.Song, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = SongsToCSV(songs)
	case FormatMarkdown:
		data = SongsToMarkdown(songs)
	case FormatJSON:
		records := make([]songRecord, 0, len(songs))
		for _, s := range songs {
			records = append(records, songRecord{
				ID:        s.ID(),
				Sequence:  s.Sequence(),
				Title:     s.Title(),
				Artist:    s.Artist(),
				YouTubeID: s.YouTubeID(),
				WatchURL:  s.Match().WatchURL,
				CreatedAt: s.CreatedAt(),
			})
		}
		data, err = shared.MarshalJSON(records, true)
	default:
		data = SongsToText(songs)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SongsToCSV renders songs with columns: Sequence, Title, Artist, YouTube ID, URL
func SongsToCSV(songs []*models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Sequence", "Title", "Artist", "YouTube ID", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range songs {
		record := []string{
			strconv.Itoa(s.Sequence()),
			s.Title(),
			s.Artist(),
			s.YouTubeID(),
			s.Match().WatchURL,
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

// SongsToMarkdown renders songs as a numbered list of links.
func SongsToMarkdown(songs []*models.Song) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Stored Songs\n\n")
	buf.WriteString(fmt.Sprintf("**Songs**: %d\n\n", len(songs)))
	for i, s := range songs {
		buf.WriteString(fmt.Sprintf("%d. [%s - %s](%s)\n", i+1, s.Artist(), s.Title(), s.Match().WatchURL))
	}
	return buf.Bytes()
}

// SongsToText renders songs as a table.
func SongsToText(songs []*models.Song) []byte {
	rows := make([][]string, 0, len(songs))
	for _, s := range songs {
		rows = append(rows, []string{strconv.Itoa(s.Sequence()), s.Artist(), s.Title(), s.YouTubeID()})
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Songs: %d\n", len(songs)))
	if len(songs) > 0 {
		buf.WriteString(renderTable(
			[]string{"#", "Artist", "Title", "Video"},
			rows,
			[]columnAlignment{alignRight},
		))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// WriteDeliveries renders delivery history to w in format.
func WriteDeliveries(w io.Writer, deliveries []*models.Delivery, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = DeliveriesToCSV(deliveries)
	case FormatMarkdown:
		data = DeliveriesToMarkdown(deliveries)
	case FormatJSON:
		records := make([]deliveryRecord, 0, len(deliveries))
		for _, d := range deliveries {
			records = append(records, deliveryRecord{
				ID:          d.ID(),
				ViewerID:    d.ViewerID(),
				Title:       d.Title(),
				Artist:      d.Artist(),
				YouTubeID:   d.YouTubeID(),
				Source:      string(d.Source()),
				DeliveredAt: d.DeliveredAt(),
			})
		}
		data, err = shared.MarshalJSON(records, true)
	default:
		data = DeliveriesToText(deliveries)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// DeliveriesToCSV renders deliveries with columns: Delivered At, Viewer, Title, Artist, YouTube ID, Source
func DeliveriesToCSV(deliveries []*models.Delivery) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Delivered At", "Viewer", "Title", "Artist", "YouTube ID", "Source"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, d := range deliveries {
		record := []string{
			d.DeliveredAt().UTC().Format(time.RFC3339),
			d.ViewerID(),
			d.Title(),
			d.Artist(),
			d.YouTubeID(),
			string(d.Source()),
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

// DeliveriesToMarkdown renders deliveries as a table.
func DeliveriesToMarkdown(deliveries []*models.Delivery) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Delivery History\n\n")
	buf.WriteString("| Delivered | Track | Video | Source |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, d := range deliveries {
		buf.WriteString(fmt.Sprintf("| %s | %s - %s | [%s](%s) | %s |\n",
			d.DeliveredAt().UTC().Format(time.RFC3339),
			escapeCell(d.Artist()),
			escapeCell(d.Title()),
			d.YouTubeID(),
			models.NewVideoMatch(d.YouTubeID()).WatchURL,
			d.Source(),
		))
	}
	return buf.Bytes()
}

// DeliveriesToText renders deliveries as a table, in the order given.
func DeliveriesToText(deliveries []*models.Delivery) []byte {
	rows := make([][]string, 0, len(deliveries))
	for _, d := range deliveries {
		rows = append(rows, []string{
			d.DeliveredAt().Local().Format("2006-01-02 15:04:05"),
			d.ViewerID(),
			d.Artist() + " - " + d.Title(),
			d.YouTubeID(),
			string(d.Source()),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Deliveries: %d\n", len(deliveries)))
	if len(deliveries) > 0 {
		buf.WriteString(renderTable([]string{"Delivered", "Viewer", "Track", "Video", "Source"}, rows, nil))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ReadTrackKeys reads a track list for cache warming.
//
// Each non-empty line is "Artist - Title". Lines starting with '#' are comments.
// A CSV export from [SongsToCSV] is also accepted; its header row is skipped.
func ReadTrackKeys(r io.Reader) ([]models.TrackKey, error) {
	var keys []models.TrackKey

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if strings.HasPrefix(text, "Sequence,") {
			continue
		}
		if key, ok := csvKey(text); ok {
			keys = append(keys, key)
			continue
		}

		artist, title, ok := strings.Cut(text, " - ")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: expected \"Artist - Title\", got %q", shared.ErrInvalidInput, line, text)
		}
		key := models.NewTrackKey(title, artist)
		if key.Title == "" || key.Artist == "" {
			return nil, fmt.Errorf("%w: line %d: empty artist or title", shared.ErrInvalidInput, line)
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track list: %w", err)
	}
	return keys, nil
}

// csvKey parses a row in the [SongsToCSV] layout.
func csvKey(text string) (models.TrackKey, bool) {
	if !strings.Contains(text, ",") {
		return models.TrackKey{}, false
	}
	record, err := csv.NewReader(strings.NewReader(text)).Read()
	if err != nil || len(record) != 5 {
		return models.TrackKey{}, false
	}
	if _, err := strconv.Atoi(record[0]); err != nil {
		return models.TrackKey{}, false
	}
	key := models.NewTrackKey(record[1], record[2])
	return key, !key.IsZero()
}
