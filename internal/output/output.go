// Package output renders stores, statistics and extraction results as
// text, JSON or tables.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"

	"github.com/bimmerbailey/chatsift/internal/analyzer"
	"github.com/bimmerbailey/chatsift/internal/chat"
	"github.com/bimmerbailey/chatsift/internal/nlp"
	"github.com/bimmerbailey/chatsift/internal/pii"
	"github.com/bimmerbailey/chatsift/internal/store"
	"github.com/bimmerbailey/chatsift/internal/tail"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

const maxCellRunes = 80

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w        io.Writer
	format   Format
	colorize bool
}

// New creates a new output Writer. Colour is auto-detected; see
// SetColorMode.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format, colorize: shouldColorize(ColorAuto, w)}
}

// SetColorMode changes when text output is coloured. JSON and tables are
// never coloured.
func (wr *Writer) SetColorMode(mode ColorMode) {
	wr.colorize = shouldColorize(mode, wr.w)
}

// Format returns the writer's output format.
func (wr *Writer) Format() Format {
	return wr.format
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (wr *Writer) newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(wr.w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

func (wr *Writer) key(k chat.AuthorKey) string {
	if wr.colorize {
		return ColorizeKey(k, string(k))
	}
	return string(k)
}

func (wr *Writer) heading(s string) string {
	if wr.colorize {
		return bold(s)
	}
	return s
}

// WriteStore outputs every bucket of s with its messages.
func (wr *Writer) WriteStore(s *chat.Store) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(s)
	case FormatTable:
		table := wr.newTable("Key", "#", "Message")
		for _, k := range s.Keys() {
			for i, msg := range s.Messages(k) {
				table.Append([]string{string(k), strconv.Itoa(i + 1), truncate(msg, maxCellRunes)})
			}
		}
		table.Render()
		return nil
	default:
		for _, k := range s.Keys() {
			fmt.Fprintf(wr.w, "%s (%d)\n", wr.heading("== "+wr.key(k)+" =="), s.Len(k))
			for _, msg := range s.Messages(k) {
				fmt.Fprintf(wr.w, "  %s\n", msg)
			}
		}
		return nil
	}
}

// WriteReport outputs per-author statistics, bucket shares and top words.
func (wr *Writer) WriteReport(r analyzer.Report) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(r)
	case FormatTable:
		table := wr.newTable("Key", "Messages", "Share", "Words", "Chars", "Emojis", "Avg Words", "Avg Chars", "Lang")
		shares := shareIndex(r.Shares)
		for _, a := range r.Authors {
			s := a.Stats
			table.Append([]string{
				string(a.Key),
				strconv.Itoa(s.TotalMessages),
				formatPercent(shares[a.Key]),
				strconv.Itoa(s.TotalWords),
				strconv.Itoa(s.TotalCharacters),
				strconv.Itoa(s.TotalEmojis),
				formatFloat(s.AvgWordsPerMessage),
				formatFloat(s.AvgCharactersPerMessage),
				s.Language,
			})
		}
		table.Render()

		if len(r.TopWords) > 0 {
			fmt.Fprintln(wr.w)
			words := wr.newTable("Word", "Count")
			for _, w := range r.TopWords {
				words.Append([]string{w.Word, strconv.Itoa(w.Count)})
			}
			words.Render()
		}
		return nil
	default:
		fmt.Fprintf(wr.w, "Total messages: %d\n", r.TotalMessages)
		shares := shareIndex(r.Shares)
		for _, a := range r.Authors {
			s := a.Stats
			fmt.Fprintf(wr.w, "\n%s\n", wr.heading(wr.key(a.Key)))
			fmt.Fprintf(wr.w, "  Messages:   %d (%s)\n", s.TotalMessages, formatPercent(shares[a.Key]))
			if s.TotalMessages == 0 {
				continue
			}
			fmt.Fprintf(wr.w, "  Words:      %d (%s per message)\n", s.TotalWords, formatFloat(s.AvgWordsPerMessage))
			fmt.Fprintf(wr.w, "  Characters: %d (%s per message)\n", s.TotalCharacters, formatFloat(s.AvgCharactersPerMessage))
			fmt.Fprintf(wr.w, "  Emojis:     %d\n", s.TotalEmojis)
			if s.Language != "" {
				fmt.Fprintf(wr.w, "  Language:   %s\n", s.Language)
			}
			fmt.Fprintf(wr.w, "  Longest:    %s\n", s.LongestMessage)
			fmt.Fprintf(wr.w, "  Shortest:   %s\n", s.ShortestMessage)
		}

		if len(r.TopWords) > 0 {
			fmt.Fprintf(wr.w, "\n%s\n", wr.heading("Top words"))
			for _, w := range r.TopWords {
				fmt.Fprintf(wr.w, "  %-20s %d\n", w.Word, w.Count)
			}
		}
		return nil
	}
}

// WritePII outputs the values extracted per bucket. Empty categories are
// omitted from text and table output.
func (wr *Writer) WritePII(keys []chat.AuthorKey, results map[chat.AuthorKey]pii.Result) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(results)
	case FormatTable:
		table := wr.newTable("Key", "Category", "Count", "Values")
		for _, k := range keys {
			for _, c := range pii.Categories() {
				values := results[k][c]
				if len(values) == 0 {
					continue
				}
				table.Append([]string{string(k), string(c), strconv.Itoa(len(values)), truncate(strings.Join(values, ", "), maxCellRunes)})
			}
		}
		table.Render()
		return nil
	default:
		for _, k := range keys {
			res := results[k]
			fmt.Fprintf(wr.w, "%s (%d found)\n", wr.heading(wr.key(k)), res.Total())
			for _, c := range pii.Categories() {
				if values := res[c]; len(values) > 0 {
					fmt.Fprintf(wr.w, "  %s: %s\n", c, strings.Join(values, ", "))
				}
			}
		}
		return nil
	}
}

// WriteEntities outputs tagged messages and their entities.
func (wr *Writer) WriteEntities(msgs []nlp.TaggedMessage) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(msgs)
	case FormatTable:
		table := wr.newTable("Key", "Label", "Entity", "Score", "Message")
		for _, m := range msgs {
			for _, e := range m.Entities {
				table.Append([]string{string(m.Key), e.Label, e.Text, formatFloat(e.Score), truncate(m.Message, maxCellRunes)})
			}
		}
		table.Render()
		return nil
	default:
		for _, m := range msgs {
			fmt.Fprintf(wr.w, "[%s] %s\n", wr.key(m.Key), m.Message)
			for _, e := range m.Entities {
				fmt.Fprintf(wr.w, "  %-5s %s (%s)\n", e.Label, e.Text, formatFloat(e.Score))
			}
		}
		return nil
	}
}

// WriteEntityStats outputs entity counts per label.
func (wr *Writer) WriteEntityStats(s analyzer.EntityStats) error {
	labels := make([]string, 0, len(s.EntityCounts))
	for l := range s.EntityCounts {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(s)
	case FormatTable:
		table := wr.newTable("Label", "Count", "Examples")
		for _, l := range labels {
			table.Append([]string{l, strconv.Itoa(s.EntityCounts[l]), truncate(strings.Join(s.UniqueEntities[l], ", "), maxCellRunes)})
		}
		table.Render()
		return nil
	default:
		fmt.Fprintf(wr.w, "Total entities: %d\n", s.TotalEntities)
		for _, l := range labels {
			fmt.Fprintf(wr.w, "  %-8s %d  %s\n", l, s.EntityCounts[l], strings.Join(s.UniqueEntities[l], ", "))
		}
		return nil
	}
}

// WriteSentiments outputs classified messages.
func (wr *Writer) WriteSentiments(msgs []nlp.ClassifiedMessage) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(msgs)
	case FormatTable:
		table := wr.newTable("Key", "Label", "Score", "Message")
		for _, m := range msgs {
			table.Append([]string{string(m.Key), m.Sentiment.Label, formatFloat(m.Sentiment.Score), truncate(m.Message, maxCellRunes)})
		}
		table.Render()
		return nil
	default:
		for _, m := range msgs {
			label := m.Sentiment.Label
			if wr.colorize {
				label = ColorizeSentiment(label, label)
			}
			fmt.Fprintf(wr.w, "[%s] %s %s: %s\n", wr.key(m.Key), label, formatFloat(m.Sentiment.Score), m.Message)
		}
		return nil
	}
}

// WriteSentimentStats outputs sentiment totals.
func (wr *Writer) WriteSentimentStats(s analyzer.SentimentStats) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(s)
	case FormatTable:
		table := wr.newTable("Label", "Count", "Percent", "Avg Score")
		table.Append([]string{"POSITIVE", strconv.Itoa(s.PositiveCount), formatPercent(s.PositivePercentage), formatFloat(s.AvgPositiveScore)})
		table.Append([]string{"NEGATIVE", strconv.Itoa(s.NegativeCount), formatPercent(s.NegativePercentage), formatFloat(s.AvgNegativeScore)})
		table.Render()
		return nil
	default:
		fmt.Fprintf(wr.w, "Total messages: %d\n", s.TotalMessages)
		fmt.Fprintf(wr.w, "  Positive: %d (%s, avg score %s)\n", s.PositiveCount, formatPercent(s.PositivePercentage), formatFloat(s.AvgPositiveScore))
		fmt.Fprintf(wr.w, "  Negative: %d (%s, avg score %s)\n", s.NegativeCount, formatPercent(s.NegativePercentage), formatFloat(s.AvgNegativeScore))
		return nil
	}
}

// WriteRuns outputs archived runs.
func (wr *Writer) WriteRuns(runs []store.Run) error {
	switch wr.format {
	case FormatJSON:
		if runs == nil {
			runs = []store.Run{}
		}
		return wr.WriteJSON(runs)
	case FormatTable:
		table := wr.newTable("ID", "Created", "Source", "Lines", "Parsed", "Messages")
		for _, r := range runs {
			table.Append([]string{
				r.ID,
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Source,
				strconv.Itoa(r.Lines),
				strconv.Itoa(r.Parsed),
				strconv.Itoa(r.Messages),
			})
		}
		table.Render()
		return nil
	default:
		for _, r := range runs {
			fmt.Fprintf(wr.w, "%s  %s  %s  (%d/%d lines, %d messages)\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source, r.Parsed, r.Lines, r.Messages)
		}
		return nil
	}
}

// WriteEvent outputs one followed message. Table format prints a plain
// tab separated line since rows arrive one at a time.
func (wr *Writer) WriteEvent(ev tail.Event) error {
	switch wr.format {
	case FormatJSON:
		b, err := json.Marshal(struct {
			Key       chat.AuthorKey `json:"key"`
			Author    string         `json:"author"`
			Sanitized string         `json:"sanitized"`
		}{ev.Key, ev.Record.Author, ev.Sanitized})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(wr.w, string(b))
		return err
	case FormatTable:
		_, err := fmt.Fprintf(wr.w, "%s\t%s\t%s\n", ev.Key, ev.Record.Author, ev.Sanitized)
		return err
	default:
		_, err := fmt.Fprintf(wr.w, "[%s] %s: %s\n", wr.key(ev.Key), ev.Record.Author, ev.Sanitized)
		return err
	}
}

func shareIndex(shares []analyzer.AuthorShare) map[chat.AuthorKey]float64 {
	idx := make(map[chat.AuthorKey]float64, len(shares))
	for _, s := range shares {
		idx[s.Key] = s.Percent
	}
	return idx
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatPercent(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64) + "%"
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
