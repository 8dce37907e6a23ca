package domain

import (
	"fmt"
	"strings"
)

// DocumentType is the closed set of procurement documents that can be audited.
type DocumentType string

// Available document types.
const (
	// DocumentTypeEdital is a call for bids.
	DocumentTypeEdital DocumentType = "edital"

	// DocumentTypeETP is a preliminary technical study (Estudo Técnico Preliminar).
	DocumentTypeETP DocumentType = "etp"

	// DocumentTypeTermoDeReferencia is a terms of reference for services.
	DocumentTypeTermoDeReferencia DocumentType = "tr"

	// DocumentTypeProjetoBasico is a basic engineering project for public works.
	DocumentTypeProjetoBasico DocumentType = "projeto-basico"
)

// AllDocumentTypes returns every document type in menu order.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeEdital,
		DocumentTypeETP,
		DocumentTypeTermoDeReferencia,
		DocumentTypeProjetoBasico,
	}
}

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeEdital, DocumentTypeETP, DocumentTypeTermoDeReferencia, DocumentTypeProjetoBasico:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DocumentType) String() string {
	return string(t)
}

// Label returns the label auditors use for the document type.
func (t DocumentType) Label() string {
	switch t {
	case DocumentTypeEdital:
		return "EDITAL"
	case DocumentTypeETP:
		return "ETP"
	case DocumentTypeTermoDeReferencia:
		return "TR (Serviços)"
	case DocumentTypeProjetoBasico:
		return "PROJETO BÁSICO (Obras)"
	default:
		return unknownDescription
	}
}

// ParseDocumentType accepts the canonical names plus the labels used in the
// procurement domain ("EDITAL", "TR", "PROJETO BÁSICO", "pb").
func ParseDocumentType(s string) (DocumentType, error) {
	normalised := strings.ToLower(strings.TrimSpace(s))
	normalised = strings.NewReplacer("á", "a", "_", "-", " ", "-").Replace(normalised)

	switch normalised {
	case "edital":
		return DocumentTypeEdital, nil
	case "etp":
		return DocumentTypeETP, nil
	case "tr", "termo-de-referencia":
		return DocumentTypeTermoDeReferencia, nil
	case "projeto-basico", "pb", "pb-obras", "obras":
		return DocumentTypeProjetoBasico, nil
	default:
		return "", fmt.Errorf("%w: unknown document type %q (expected one of edital, etp, tr, projeto-basico)",
			ErrInvalidInput, s)
	}
}
