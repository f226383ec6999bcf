package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// judgmentMarker labels the per-item test-result judgment-basis table
// in extracted MR reports.
const judgmentMarker = "시험결과판정근거"

var tePattern = regexp.MustCompile(`TE\d{2}\.\d{2}\.\d{2}`)

// JSONReport is a Source backed by an already-extracted structured
// report document (pages, tables, cells) as produced by the external
// document extractor. It never touches the raw report file.
type JSONReport struct {
	doc reportDoc
}

type reportDoc struct {
	FilePath string           `json:"file_path"`
	Metadata map[string]any   `json:"metadata"`
	Pages    []reportPage     `json:"pages"`
}

type reportPage struct {
	PageNumber int            `json:"page_number"`
	Corrupted  bool           `json:"corrupted"`
	Tables     []reportTable  `json:"tables"`
	TextBlocks []reportBlock  `json:"text_blocks"`
}

type reportBlock struct {
	Text string `json:"text"`
}

type reportTable struct {
	TableID   string         `json:"table_id"`
	Caption   string         `json:"caption"`
	Corrupted bool           `json:"corrupted"`
	Note      string         `json:"note"`
	Cells     []reportCell   `json:"cells"`
	Image     *reportImage   `json:"image"`
	Metadata  map[string]any `json:"metadata"`
}

type reportCell struct {
	Row    *int   `json:"row"`
	Col    *int   `json:"col"`
	RowIdx *int   `json:"row_idx"`
	ColIdx *int   `json:"col_idx"`
	Text   string `json:"text"`
}

func (c reportCell) position() (int, int) {
	row, col := 0, 0
	switch {
	case c.RowIdx != nil:
		row = *c.RowIdx
	case c.Row != nil:
		row = *c.Row
	}
	switch {
	case c.ColIdx != nil:
		col = *c.ColIdx
	case c.Col != nil:
		col = *c.Col
	}
	return row, col
}

type reportImage struct {
	FilePath string `json:"file_path"`
	Base64   string `json:"base64"`
}

// OpenJSONReport loads an extracted report document from disk.
func OpenJSONReport(path string) (*JSONReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read report %s", path)
	}
	return ParseJSONReport(raw)
}

// ParseJSONReport parses an extracted report document.
func ParseJSONReport(raw []byte) (*JSONReport, error) {
	var doc reportDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "extract: parse report document")
	}
	return &JSONReport{doc: doc}, nil
}

// Lookup finds the judgment-basis table for id. Match order follows the
// source extractor's behavior: caption carrying both the id and the
// judgment marker, then cells carrying both, then any caption carrying
// the id.
func (r *JSONReport) Lookup(_ context.Context, id string) (*RawRecord, error) {
	if hit := r.findTable(id, func(p reportPage, t reportTable) bool {
		return strings.Contains(t.Caption, id) && strings.Contains(t.Caption, judgmentMarker)
	}); hit != nil {
		return hit, nil
	}
	if hit := r.findTable(id, func(p reportPage, t reportTable) bool {
		hasID, hasMarker := false, false
		for _, c := range t.Cells {
			if strings.Contains(c.Text, id) {
				hasID = true
			}
			if strings.Contains(c.Text, judgmentMarker) {
				hasMarker = true
			}
		}
		return hasID && hasMarker
	}); hit != nil {
		return hit, nil
	}
	if hit := r.findTable(id, func(p reportPage, t reportTable) bool {
		return strings.Contains(t.Caption, id)
	}); hit != nil {
		return hit, nil
	}
	return nil, nil
}

func (r *JSONReport) findTable(id string, match func(reportPage, reportTable) bool) *RawRecord {
	for _, page := range r.doc.Pages {
		for _, table := range page.Tables {
			if !match(page, table) {
				continue
			}
			return r.buildRecord(id, page, table)
		}
	}
	return nil
}

func (r *JSONReport) buildRecord(id string, page reportPage, table reportTable) *RawRecord {
	rec := &RawRecord{
		ID:         id,
		PageNumber: page.PageNumber,
		Caption:    table.Caption,
		Metadata:   r.metadataFor(table),
	}

	for _, c := range table.Cells {
		row, col := c.position()
		rec.Cells = append(rec.Cells, Cell{Row: row, Col: col, Text: c.Text})
	}

	if table.Image != nil {
		rec.HasImage = true
		if b64 := table.Image.Base64; b64 != "" {
			if i := strings.IndexByte(b64, ','); strings.HasPrefix(b64, "data:") && i >= 0 {
				b64 = b64[i+1:]
			}
			if data, err := base64.StdEncoding.DecodeString(b64); err == nil {
				rec.ImageData = data
			}
		}
	}

	if page.Corrupted || table.Corrupted {
		rec.Corrupted = true
		rec.CorruptNote = table.Note
		if rec.CorruptNote == "" {
			rec.CorruptNote = fmt.Sprintf("page %d partially unreadable", page.PageNumber)
		}
	}
	return rec
}

// metadataFor merges document-level metadata with table-local metadata,
// table values winning. Non-string values are stringified; nothing else
// is interpreted here.
func (r *JSONReport) metadataFor(table reportTable) map[string]string {
	out := make(map[string]string)
	for k, v := range r.doc.Metadata {
		out[k] = stringify(v)
	}
	for k, v := range table.Metadata {
		out[k] = stringify(v)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Items returns the sorted, de-duplicated TE numbers appearing in the
// report's captions, cells, and text blocks.
func (r *JSONReport) Items(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, page := range r.doc.Pages {
		for _, table := range page.Tables {
			for _, m := range tePattern.FindAllString(table.Caption, -1) {
				seen[m] = true
			}
			for _, c := range table.Cells {
				for _, m := range tePattern.FindAllString(c.Text, -1) {
					seen[m] = true
				}
			}
		}
		for _, block := range page.TextBlocks {
			for _, m := range tePattern.FindAllString(block.Text, -1) {
				seen[m] = true
			}
		}
	}
	items := make([]string, 0, len(seen))
	for id := range seen {
		items = append(items, id)
	}
	sort.Strings(items)
	return items, nil
}
