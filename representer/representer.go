// Package representer converts members and collections to documents
// and back. Documents follow the shape declared by the resource
// registry: a member element holds either a single link or its content
// sequence, a collection element holds zero or more members and at
// most one link.
package representer

import (
	"errors"
	"io"

	"github.com/everest-org/everest/resource"
)

var ErrUnexpectedElement = errors.New("unexpected element")
var ErrRelationMismatch = errors.New("link relation mismatch")
var ErrTypeMismatch = errors.New("value type mismatch")
var ErrBadDocument = errors.New("malformed document")

// Content types of the built-in representers.
const (
	ContentTypeXML  = "application/xml"
	ContentTypeJSON = "application/json"
)

// CollectionDocument is the parsed form of a collection document. Link
// stubs among the members assert membership without carrying content.
type CollectionDocument struct {
	Type    *resource.Type
	Members []*resource.Member
	// Link is the collection's own link element, when present.
	Link *resource.Link
}

// Representer reads and writes one document content type.
type Representer interface {
	ContentType() string
	WriteMember(w io.Writer, m *resource.Member) error
	ReadMember(r io.Reader) (*resource.Member, error)
	WriteCollection(w io.Writer, c *resource.Collection) error
	ReadCollection(r io.Reader) (*CollectionDocument, error)
}

// New returns the representer for the given content type.
func New(contentType string, registry *resource.Registry, config *Config) (Representer, error) {
	switch contentType {
	case ContentTypeXML:
		return NewXML(registry, config), nil
	case ContentTypeJSON:
		return NewJSON(registry, config), nil
	}
	return nil, errors.New("no representer for content type " + contentType)
}
