package domain

// DocumentCategory is the logical type of an uploaded document. Each category
// has its own slot and extraction behavior.
type DocumentCategory string

const (
	CategoryMasterAgreement DocumentCategory = "master_agreement"
	CategoryAmendment       DocumentCategory = "amendment"
	CategoryRateCard        DocumentCategory = "rate_card"
	CategoryServiceOrder    DocumentCategory = "service_order"
	CategoryStatementOfWork DocumentCategory = "statement_of_work"
)

// AllCategories lists every known category in registration order.
var AllCategories = []DocumentCategory{
	CategoryMasterAgreement,
	CategoryAmendment,
	CategoryRateCard,
	CategoryServiceOrder,
	CategoryStatementOfWork,
}

// IsValid reports whether c is a known category.
func (c DocumentCategory) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Multiplicity says whether a slot accepts one file or many.
type Multiplicity string

const (
	MultiplicitySingle   Multiplicity = "single"
	MultiplicityMultiple Multiplicity = "multiple"
)

// ProcessingStage is the state of one upload's extraction state machine.
type ProcessingStage string

const (
	StageIdle                   ProcessingStage = "idle"
	StageDocumentReceived       ProcessingStage = "document_received"
	StageRelationshipExtraction ProcessingStage = "relationship_extraction"
	StageDetailExtraction       ProcessingStage = "detail_extraction"
	StageRateExtraction         ProcessingStage = "rate_extraction"
	StageComplete               ProcessingStage = "complete"
	StageError                  ProcessingStage = "error"
)

// IsTerminal reports whether no further transitions happen from s.
func (s ProcessingStage) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

// ExtractionScope selects which group of document fields the extraction
// service should return.
type ExtractionScope string

const (
	ScopeRelationship ExtractionScope = "relationship"
	ScopeDetails      ExtractionScope = "details"
)

// ColumnKind classifies a rate table column.
type ColumnKind string

const (
	ColumnRate        ColumnKind = "rate"
	ColumnDescriptive ColumnKind = "descriptive"
)

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeXLSX FileType = "xlsx"
	FileTypeDOCX FileType = "docx"
	FileTypeCSV  FileType = "csv"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypeJPG:  "image/jpeg",
	FileTypePNG:  "image/png",
	FileTypeXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FileTypeDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FileTypeCSV:  "text/csv",
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"xlsx": FileTypeXLSX,
	"docx": FileTypeDOCX,
	"csv":  FileTypeCSV,
}

// SniffedContentTypes lists, per FileType, the results of
// http.DetectContentType that are acceptable for that type. Office documents
// are zip containers and CSV sniffs as plain text.
var SniffedContentTypes = map[FileType][]string{
	FileTypePDF:  {"application/pdf"},
	FileTypeJPG:  {"image/jpeg"},
	FileTypePNG:  {"image/png"},
	FileTypeXLSX: {"application/zip"},
	FileTypeDOCX: {"application/zip"},
	FileTypeCSV:  {"text/plain; charset=utf-8", "text/csv"},
}
