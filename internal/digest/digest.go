// Package digest assembles ranked blocks into the output artifact and
// serializes it.
package digest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docdigest/internal/chunker"
	"github.com/dgallion1/docdigest/internal/query"
	"github.com/dgallion1/docdigest/internal/rank"
)

const (
	// TitleChars is how many characters of a block's text form its title.
	TitleChars = 70
	// TimestampLayout renders UTC time with microseconds and no zone suffix.
	TimestampLayout = "2006-01-02T15:04:05.000000"
)

type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

type SectionEntry struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

type SubsectionEntry struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// Digest is the structured result of one run.
type Digest struct {
	Metadata           Metadata          `json:"metadata"`
	ExtractedSections  []SectionEntry    `json:"extracted_sections"`
	SubsectionAnalysis []SubsectionEntry `json:"subsection_analysis"`
}

// Assemble builds a Digest from blocks already truncated to the top K, in
// rank order. documents are the input base names in discovery order.
func Assemble(ranked []rank.RankedBlock, q query.Query, documents []string, paragraphsK int, now time.Time) *Digest {
	d := &Digest{
		Metadata: Metadata{
			InputDocuments:      append([]string{}, documents...),
			Persona:             q.Persona,
			JobToBeDone:         q.Job,
			ProcessingTimestamp: FormatTimestamp(now),
		},
		ExtractedSections:  make([]SectionEntry, 0, len(ranked)),
		SubsectionAnalysis: make([]SubsectionEntry, 0, len(ranked)),
	}

	for _, rb := range ranked {
		d.ExtractedSections = append(d.ExtractedSections, SectionEntry{
			Document:       rb.Block.Document,
			SectionTitle:   SectionTitle(rb.Block.Text),
			ImportanceRank: rb.Rank,
			PageNumber:     rb.Block.Page,
		})
		for _, para := range chunker.TopParagraphs(rb.Block.Text, paragraphsK) {
			d.SubsectionAnalysis = append(d.SubsectionAnalysis, SubsectionEntry{
				Document:    rb.Block.Document,
				RefinedText: strings.TrimSpace(para),
				PageNumber:  rb.Block.Page,
			})
		}
	}
	return d
}

// lineBreaks flattens each line break, CRLF included, to one space.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// SectionTitle is the first TitleChars characters of text with line breaks
// flattened to spaces, followed by "...".
func SectionTitle(text string) string {
	return lineBreaks.Replace(chunker.Prefix(text, TitleChars)) + "..."
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Write encodes d as indented JSON without HTML escaping.
func Write(w io.Writer, d *Digest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode digest: %w", err)
	}
	return nil
}

// Marshal returns the serialized form of d.
func Marshal(d *Digest) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes d to path, creating the parent directory. The file is
// written to a temporary sibling and renamed into place.
func WriteFile(path string, d *Digest) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
