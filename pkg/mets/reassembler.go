package mets

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/archivetools/go-metsynth/pkg/table"
)

// ReassemblyError reports a template slot that could not be filled from the
// synthetic row set.
type ReassemblyError struct {
	Table  string
	Reason string
}

func (e *ReassemblyError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("mets: reassemble %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("mets: reassemble: %s", e.Reason)
}

// agentName is written into metsHdr as the creating agent.
const agentName = "go-metsynth synthetic data generator"

// Option customises the reassembler.
type Option func(*Reassembler)

// WithLogger injects the logger used for progress reporting.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Reassembler) {
		r.log = log
	}
}

// Reassembler maps synthetic rows into the fixed METS template.
type Reassembler struct {
	log zerolog.Logger
}

// NewReassembler constructs a Reassembler applying any provided options.
func NewReassembler(options ...Option) *Reassembler {
	r := &Reassembler{log: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Reassemble builds the METS document from the synthetic tables. Element
// order follows row order and sorted column order, so identical row sets
// produce identical documents.
func (r *Reassembler) Reassemble(set *table.Set) (*Document, error) {
	if set == nil || set.DmdSec == nil || set.File == nil || set.StructMap == nil {
		return nil, &ReassemblyError{Reason: "missing required synthetic data tables"}
	}

	r.log.Info().Msg("reassembling synthetic rows into METS XML")

	doc := &Document{
		XMLNSMets:  NamespaceMETS,
		XMLNSXLink: NamespaceXLink,
		XMLNSDC:    NamespaceDC,
		XMLNSDNX:   NamespaceDNX,
		Header: Header{
			Agent: Agent{Role: "CREATOR", Type: "OTHER", Name: agentName},
		},
		AmdSec: placeholderAmdSec(),
	}

	dmdSecs, err := buildDmdSecs(set.DmdSec)
	if err != nil {
		return nil, err
	}
	doc.DmdSecs = dmdSecs

	fileSec, err := buildFileSec(set.File)
	if err != nil {
		return nil, err
	}
	doc.FileSec = fileSec

	structMap, err := buildStructMap(set.StructMap)
	if err != nil {
		return nil, err
	}
	doc.StructMap = structMap

	r.log.Debug().
		Int("dmd_secs", len(doc.DmdSecs)).
		Int("files", len(doc.FileSec.Groups[0].Files)).
		Int("divisions", set.StructMap.Len()).
		Msg("document assembled")

	return doc, nil
}

// WriteFile serialises the document with an XML declaration and two-space
// indentation.
func (r *Reassembler) WriteFile(doc *Document, path string) error {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("mets: marshal document: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mets: create output dir: %w", err)
		}
	}
	payload := append([]byte(xml.Header), data...)
	payload = append(payload, '\n')
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("mets: write document: %w", err)
	}
	r.log.Info().Str("path", path).Msg("wrote METS document")
	return nil
}

func placeholderAmdSec() AmdSec {
	return AmdSec{
		TechMD: TechMD{
			ID: "AMD1",
			MdWrap: MdWrap{
				MDType:      "OTHER",
				OtherMDType: "DNX",
				XMLData: XMLData{
					DNX: &DNX{
						Section: DNXSection{
							ID: "generalRepCharacteristics",
							Record: DNXRecord{
								Key: DNXKey{ID: "preservationType", Value: "PRESERVATION_MASTER"},
							},
						},
					},
				},
			},
		},
	}
}

func buildDmdSecs(t *table.Table) ([]DmdSec, error) {
	out := make([]DmdSec, 0, t.Len())
	for _, row := range t.Rows {
		id, err := requireValue(t.Name, row, "dmd_id")
		if err != nil {
			return nil, err
		}

		record := &DublinCore{}
		for _, col := range t.Columns {
			if !strings.HasPrefix(col, "dc_") || table.IsNull(row[col]) {
				continue
			}
			record.Elements = append(record.Elements, DCElement{
				XMLName: xml.Name{Local: "dc:" + strings.TrimPrefix(col, "dc_")},
				Value:   table.Format(row[col]),
			})
		}

		out = append(out, DmdSec{
			ID: id,
			MdWrap: MdWrap{
				MDType:  "DC",
				XMLData: XMLData{DublinCore: record},
			},
		})
	}
	return out, nil
}

func buildFileSec(t *table.Table) (FileSec, error) {
	group := FileGrp{Use: "CONTENT"}
	for _, row := range t.Rows {
		fileID, err := requireValue(t.Name, row, "file_id")
		if err != nil {
			return FileSec{}, err
		}
		dmdID, err := requireValue(t.Name, row, "dmd_id")
		if err != nil {
			return FileSec{}, err
		}

		file := File{
			ID:       fileID,
			MIMEType: valueOr(row, "mimetype", "application/octet-stream"),
			DMDID:    dmdID,
			Size:     valueOr(row, "size", ""),
			FLocat: FLocat{
				Href:    valueOr(row, "href", "file://"+fileID),
				LocType: valueOr(row, "loctype", "URL"),
			},
		}
		if checksum := valueOr(row, "checksum", ""); checksum != "" {
			file.Checksum = checksum
			file.ChecksumType = valueOr(row, "checksumtype", "MD5")
		}
		group.Files = append(group.Files, file)
	}
	return FileSec{Groups: []FileGrp{group}}, nil
}

// buildStructMap assembles the division hierarchy in two passes: create
// every div, then attach children to parents. A division whose parent_id
// is null or references no sampled division becomes a root, so every
// synthetic row appears in the output document. Children only attach to
// parents from earlier rows; this rules out reference cycles, which would
// otherwise detach whole subtrees.
func buildStructMap(t *table.Table) (StructMap, error) {
	structMap := StructMap{Type: "LOGICAL"}

	divisions := make(map[string]*Div, t.Len())
	rowIndex := make(map[string]int, t.Len())
	divs := make([]*Div, 0, t.Len())
	for _, row := range t.Rows {
		structID, err := requireValue(t.Name, row, "struct_id")
		if err != nil {
			return StructMap{}, err
		}
		dmdID, err := requireValue(t.Name, row, "dmd_id")
		if err != nil {
			return StructMap{}, err
		}

		div := &Div{
			ID:    structID,
			DMDID: dmdID,
			Label: valueOr(row, "label", ""),
			Order: valueOr(row, "order", ""),
			Type:  valueOr(row, "type", ""),
		}
		if fileID := valueOr(row, "file_id", ""); fileID != "" {
			div.Fptrs = append(div.Fptrs, Fptr{FileID: fileID})
		}
		if _, exists := divisions[structID]; !exists {
			rowIndex[structID] = len(divs)
			divisions[structID] = div
		}
		divs = append(divs, div)
	}

	for i, row := range t.Rows {
		div := divs[i]
		parentID := valueOr(row, "parent_id", "")
		parent, ok := divisions[parentID]
		if ok && parent != div && rowIndex[parentID] < i {
			parent.Children = append(parent.Children, div)
			continue
		}
		structMap.Divs = append(structMap.Divs, div)
	}

	return structMap, nil
}

func requireValue(tableName string, row table.Row, column string) (string, error) {
	value := row[column]
	if table.IsNull(value) {
		return "", &ReassemblyError{
			Table:  tableName,
			Reason: fmt.Sprintf("row is missing a value for template slot %s", column),
		}
	}
	return table.Format(value), nil
}

func valueOr(row table.Row, column, fallback string) string {
	if table.IsNull(row[column]) {
		return fallback
	}
	return table.Format(row[column])
}
