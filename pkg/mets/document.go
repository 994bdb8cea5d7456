// Package mets reassembles synthetic rows into a METS XML document. The
// element names, nesting and namespace declarations are owned by the fixed
// template encoded in the types below; row values only ever fill text and
// attribute slots, with escaping handled by the encoding/xml marshaller.
package mets

import "encoding/xml"

// Namespace URIs declared on the document root.
const (
	NamespaceMETS  = "http://www.loc.gov/METS/"
	NamespaceXLink = "http://www.w3.org/1999/xlink"
	NamespaceDC    = "http://purl.org/dc/elements/1.1/"
	NamespaceDNX   = "http://www.exlibrisgroup.com/dps/dnx"
)

// Document is the METS root.
type Document struct {
	XMLName    xml.Name `xml:"mets:mets"`
	XMLNSMets  string   `xml:"xmlns:mets,attr"`
	XMLNSXLink string   `xml:"xmlns:xlink,attr"`
	XMLNSDC    string   `xml:"xmlns:dc,attr"`
	XMLNSDNX   string   `xml:"xmlns:dnx,attr"`

	Header    Header    `xml:"mets:metsHdr"`
	DmdSecs   []DmdSec  `xml:"mets:dmdSec"`
	AmdSec    AmdSec    `xml:"mets:amdSec"`
	FileSec   FileSec   `xml:"mets:fileSec"`
	StructMap StructMap `xml:"mets:structMap"`
}

// Header is the metsHdr section naming the creating agent.
type Header struct {
	Agent Agent `xml:"mets:agent"`
}

// Agent identifies the document creator.
type Agent struct {
	Role string `xml:"ROLE,attr"`
	Type string `xml:"TYPE,attr"`
	Name string `xml:"mets:name"`
}

// DmdSec wraps one descriptive metadata record.
type DmdSec struct {
	ID     string `xml:"ID,attr"`
	MdWrap MdWrap `xml:"mets:mdWrap"`
}

// MdWrap carries embedded metadata of a declared type.
type MdWrap struct {
	MDType      string  `xml:"MDTYPE,attr"`
	OtherMDType string  `xml:"OTHERMDTYPE,attr,omitempty"`
	XMLData     XMLData `xml:"mets:xmlData"`
}

// XMLData holds either a Dublin Core record or a DNX block.
type XMLData struct {
	DublinCore *DublinCore `xml:"dc:dc,omitempty"`
	DNX        *DNX        `xml:"dnx:dnx,omitempty"`
}

// DublinCore is a flat record of dc:* elements.
type DublinCore struct {
	Elements []DCElement
}

// DCElement is a single Dublin Core element; its name is set per column.
type DCElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// AmdSec is the administrative metadata section. The pipeline emits a
// fixed DNX placeholder here; the source repository archives real DNX
// blocks, but their internals are not part of the modelled tables.
type AmdSec struct {
	TechMD TechMD `xml:"mets:techMD"`
}

// TechMD wraps technical metadata.
type TechMD struct {
	ID     string `xml:"ID,attr"`
	MdWrap MdWrap `xml:"mets:mdWrap"`
}

// DNX is the placeholder preservation metadata block.
type DNX struct {
	Section DNXSection `xml:"dnx:section"`
}

// DNXSection groups DNX records.
type DNXSection struct {
	ID     string    `xml:"id,attr"`
	Record DNXRecord `xml:"dnx:record"`
}

// DNXRecord holds a single key.
type DNXRecord struct {
	Key DNXKey `xml:"dnx:key"`
}

// DNXKey is one DNX key/value pair.
type DNXKey struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

// FileSec lists the content files.
type FileSec struct {
	Groups []FileGrp `xml:"mets:fileGrp"`
}

// FileGrp groups files by use.
type FileGrp struct {
	Use   string `xml:"USE,attr"`
	Files []File `xml:"mets:file"`
}

// File describes one content file.
type File struct {
	ID           string `xml:"ID,attr"`
	MIMEType     string `xml:"MIMETYPE,attr"`
	DMDID        string `xml:"DMDID,attr"`
	Size         string `xml:"SIZE,attr,omitempty"`
	Checksum     string `xml:"CHECKSUM,attr,omitempty"`
	ChecksumType string `xml:"CHECKSUMTYPE,attr,omitempty"`
	FLocat       FLocat `xml:"mets:FLocat"`
}

// FLocat locates the file content.
type FLocat struct {
	Href    string `xml:"xlink:href,attr"`
	LocType string `xml:"LOCTYPE,attr"`
}

// StructMap is the logical structure map.
type StructMap struct {
	Type string `xml:"TYPE,attr"`
	Divs []*Div `xml:"mets:div"`
}

// Div is one division in the structure hierarchy.
type Div struct {
	ID       string `xml:"ID,attr"`
	DMDID    string `xml:"DMDID,attr"`
	Label    string `xml:"LABEL,attr,omitempty"`
	Order    string `xml:"ORDER,attr,omitempty"`
	Type     string `xml:"TYPE,attr,omitempty"`
	Fptrs    []Fptr `xml:"mets:fptr"`
	Children []*Div `xml:"mets:div"`
}

// Fptr points a division at a file.
type Fptr struct {
	FileID string `xml:"FILEID,attr"`
}
