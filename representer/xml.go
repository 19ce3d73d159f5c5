package representer

import (
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/everest-org/everest/resource"
)

// XML is the representer for the framework's primary document format.
type XML struct {
	registry *resource.Registry
	config   *Config
}

var _ Representer = (*XML)(nil)

func NewXML(registry *resource.Registry, config *Config) *XML {
	return &XML{registry: registry, config: config}
}

func (x *XML) ContentType() string {
	return ContentTypeXML
}

// xmlNode is the generic element tree documents are decoded into and
// encoded from.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
	Text    string     `xml:",chardata"`
}

func (x *XML) WriteMember(w io.Writer, m *resource.Member) error {
	node, err := x.memberNode(m)
	if err != nil {
		return err
	}
	// The namespace is declared on the document root only; the encoder
	// would otherwise re-declare it on every element.
	node.XMLName.Space = m.Type().Namespace
	return encodeXML(w, node)
}

func (x *XML) WriteCollection(w io.Writer, c *resource.Collection) error {
	rt := c.Type()
	node := xmlNode{XMLName: xml.Name{Space: rt.Namespace, Local: rt.CollectionTag}}
	members, err := c.Members()
	if err != nil {
		return err
	}
	for _, m := range members {
		child, err := x.memberNode(m)
		if err != nil {
			return err
		}
		node.Nodes = append(node.Nodes, child)
	}
	return encodeXML(w, node)
}

func (x *XML) ReadMember(r io.Reader) (*resource.Member, error) {
	var node xmlNode
	if err := xml.NewDecoder(r).Decode(&node); err != nil {
		return nil, fmt.Errorf("parse: %v: %w", err, ErrBadDocument)
	}
	rt, err := x.registry.TypeByTag(node.XMLName.Local)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.XMLName.Local, ErrUnexpectedElement)
	}
	if err := checkNamespace(rt, node, node.XMLName.Local); err != nil {
		return nil, err
	}
	return x.readMember(rt, node, node.XMLName.Local)
}

func (x *XML) ReadCollection(r io.Reader) (*CollectionDocument, error) {
	var node xmlNode
	if err := xml.NewDecoder(r).Decode(&node); err != nil {
		return nil, fmt.Errorf("parse: %v: %w", err, ErrBadDocument)
	}
	rt, err := x.registry.TypeByCollectionTag(node.XMLName.Local)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.XMLName.Local, ErrUnexpectedElement)
	}
	if err := checkNamespace(rt, node, node.XMLName.Local); err != nil {
		return nil, err
	}

	path := node.XMLName.Local
	doc := &CollectionDocument{Type: rt}
	for _, child := range node.Nodes {
		switch child.XMLName.Local {
		case "link":
			if doc.Link != nil {
				return nil, fmt.Errorf("%s: more than one link: %w", path, ErrUnexpectedElement)
			}
			link, err := parseLink(child, rt.CollectionRelation(), path)
			if err != nil {
				return nil, err
			}
			doc.Link = link
		case rt.Tag:
			m, err := x.readMember(rt, child, path+"/"+child.XMLName.Local)
			if err != nil {
				return nil, err
			}
			doc.Members = append(doc.Members, m)
		default:
			return nil, fmt.Errorf("%s/%s: %w", path, child.XMLName.Local, ErrUnexpectedElement)
		}
	}
	return doc, nil
}

// memberNode builds the element of one member: its declared attribute
// sequence, with nested resources inline or as links per configuration.
// Terminal attributes holding their type's zero value are treated as
// unset and omitted.
func (x *XML) memberNode(m *resource.Member) (xmlNode, error) {
	rt := m.Type()
	opts := x.config.For(rt.Tag)
	node := xmlNode{XMLName: xml.Name{Local: rt.Tag}}
	for _, attr := range rt.Attributes {
		if opts.skipOnWrite(attr.Name) {
			continue
		}
		value, err := m.Get(attr.Name)
		if err != nil {
			return xmlNode{}, err
		}
		switch attr.Kind {
		case resource.KIND_TERMINAL:
			if value == nil || reflect.ValueOf(value).IsZero() {
				continue
			}
			node.Nodes = append(node.Nodes, xmlNode{
				XMLName: xml.Name{Local: attr.Name},
				Text:    formatTerminal(value),
			})
		case resource.KIND_MEMBER:
			if value == nil {
				continue
			}
			nested := value.(*resource.Member)
			if opts.writeAsLink(attr.Name) {
				nrt := nested.Type()
				node.Nodes = append(node.Nodes, xmlNode{
					XMLName: xml.Name{Local: nrt.Tag},
					Nodes:   []xmlNode{linkNode(nrt.Relation, nested.Path())},
				})
				continue
			}
			child, err := x.memberNode(nested)
			if err != nil {
				return xmlNode{}, err
			}
			node.Nodes = append(node.Nodes, child)
		case resource.KIND_COLLECTION:
			col := value.(*resource.Collection)
			nrt := col.Type()
			wrapper := xmlNode{XMLName: xml.Name{Local: nrt.CollectionTag}}
			if opts.writeAsLink(attr.Name) {
				wrapper.Nodes = []xmlNode{linkNode(nrt.CollectionRelation(), col.Path())}
			} else {
				if link := m.CollectionLink(attr.Name); link != nil {
					wrapper.Nodes = append(wrapper.Nodes, linkNode(link.Rel, link.HRef))
				}
				members, err := col.Members()
				if err != nil {
					return xmlNode{}, err
				}
				for _, nested := range members {
					child, err := x.memberNode(nested)
					if err != nil {
						return xmlNode{}, err
					}
					wrapper.Nodes = append(wrapper.Nodes, child)
				}
			}
			node.Nodes = append(node.Nodes, wrapper)
		}
	}
	return node, nil
}

// readMember enforces the link-or-content choice of member elements.
func (x *XML) readMember(rt *resource.Type, node xmlNode, path string) (*resource.Member, error) {
	if len(node.Nodes) == 1 && node.Nodes[0].XMLName.Local == "link" {
		link, err := parseLink(node.Nodes[0], rt.Relation, path)
		if err != nil {
			return nil, err
		}
		return rt.LinkMember(pathSlug(link.HRef))
	}

	opts := x.config.For(rt.Tag)
	byDoc, err := documentAttributes(rt)
	if err != nil {
		return nil, err
	}
	ent, err := rt.NewEntity()
	if err != nil {
		return nil, err
	}
	m, err := rt.NewMember(ent)
	if err != nil {
		return nil, err
	}
	for _, child := range node.Nodes {
		childPath := path + "/" + child.XMLName.Local
		if child.XMLName.Local == "link" {
			return nil, fmt.Errorf("%s: link amid content: %w", childPath, ErrUnexpectedElement)
		}
		attr, found := byDoc[child.XMLName.Local]
		if !found {
			return nil, fmt.Errorf("%s: %w", childPath, ErrUnexpectedElement)
		}
		if opts.skipOnRead(attr.Name) {
			continue
		}
		switch attr.Kind {
		case resource.KIND_TERMINAL:
			value, err := parseTerminal(rt, attr, strings.TrimSpace(child.Text))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", childPath, err)
			}
			if err := m.SetTerminal(attr.Name, value); err != nil {
				return nil, err
			}
		case resource.KIND_MEMBER:
			nrt, err := x.registry.TypeFor(attr.Prototype)
			if err != nil {
				return nil, err
			}
			nested, err := x.readMember(nrt, child, childPath)
			if err != nil {
				return nil, err
			}
			if err := m.SetMember(attr.Name, nested); err != nil {
				return nil, err
			}
		case resource.KIND_COLLECTION:
			if err := x.readNestedCollection(m, attr, child, childPath); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// readNestedCollection accepts zero or more member elements and at
// most one link inside a collection element.
func (x *XML) readNestedCollection(m *resource.Member, attr resource.Attribute, node xmlNode, path string) error {
	nrt, err := x.registry.TypeFor(attr.Prototype)
	if err != nil {
		return err
	}
	got, err := m.Get(attr.Name)
	if err != nil {
		return err
	}
	col := got.(*resource.Collection)

	sawLink := false
	for _, child := range node.Nodes {
		switch child.XMLName.Local {
		case "link":
			if sawLink {
				return fmt.Errorf("%s: more than one link: %w", path, ErrUnexpectedElement)
			}
			sawLink = true
			link, err := parseLink(child, nrt.CollectionRelation(), path)
			if err != nil {
				return err
			}
			m.SetCollectionLink(attr.Name, link)
		case nrt.Tag:
			nested, err := x.readMember(nrt, child, path+"/"+child.XMLName.Local)
			if err != nil {
				return err
			}
			if err := col.Add(nested); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s/%s: %w", path, child.XMLName.Local, ErrUnexpectedElement)
		}
	}
	return nil
}

func encodeXML(w io.Writer, node xmlNode) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

func linkNode(rel, href string) xmlNode {
	return xmlNode{
		XMLName: xml.Name{Space: resource.Namespace, Local: "link"},
		Attrs: []xml.Attr{
			{Name: xml.Name{Local: "rel"}, Value: rel},
			{Name: xml.Name{Local: "href"}, Value: href},
		},
	}
}

// parseLink checks the fixed relation URI of a link element.
func parseLink(node xmlNode, wantRel, path string) (*resource.Link, error) {
	var rel, href string
	for _, a := range node.Attrs {
		switch a.Name.Local {
		case "rel":
			rel = a.Value
		case "href":
			href = a.Value
		}
	}
	if rel != wantRel {
		return nil, fmt.Errorf("%s: rel %q, want %q: %w", path, rel, wantRel, ErrRelationMismatch)
	}
	if href == "" {
		return nil, fmt.Errorf("%s: link without href: %w", path, ErrBadDocument)
	}
	return &resource.Link{Rel: rel, HRef: href}, nil
}

func checkNamespace(rt *resource.Type, node xmlNode, path string) error {
	if rt.Namespace != "" && node.XMLName.Space != rt.Namespace {
		return fmt.Errorf("%s: namespace %q, want %q: %w", path, node.XMLName.Space, rt.Namespace, ErrUnexpectedElement)
	}
	return nil
}

// documentAttributes maps document element names to the resource
// attributes they populate. Terminals use the attribute name, nested
// members and collections the tags of their resource type.
func documentAttributes(rt *resource.Type) (map[string]resource.Attribute, error) {
	byDoc := map[string]resource.Attribute{}
	for _, attr := range rt.Attributes {
		switch attr.Kind {
		case resource.KIND_TERMINAL:
			byDoc[attr.Name] = attr
		case resource.KIND_MEMBER:
			nrt, err := rt.Registry().TypeFor(attr.Prototype)
			if err != nil {
				return nil, err
			}
			byDoc[nrt.Tag] = attr
		case resource.KIND_COLLECTION:
			nrt, err := rt.Registry().TypeFor(attr.Prototype)
			if err != nil {
				return nil, err
			}
			byDoc[nrt.CollectionTag] = attr
		}
	}
	return byDoc, nil
}

func formatTerminal(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	}
	return fmt.Sprintf("%v", value)
}

var timeType = reflect.TypeOf(time.Time{})

// parseTerminal converts document text to the entity field's type.
func parseTerminal(rt *resource.Type, attr resource.Attribute, text string) (any, error) {
	field, found := rt.EntityType().Elem().FieldByName(attr.EntityAttr)
	if !found {
		return nil, fmt.Errorf("%s: %w", attr.EntityAttr, resource.ErrUnknownAttribute)
	}
	if field.Type == timeType {
		ts, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return nil, fmt.Errorf("%q is not a timestamp: %w", text, ErrTypeMismatch)
		}
		return ts, nil
	}
	switch field.Type.Kind() {
	case reflect.String:
		return text, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer: %w", text, ErrTypeMismatch)
		}
		return reflect.ValueOf(n).Convert(field.Type).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean: %w", text, ErrTypeMismatch)
		}
		return b, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number: %w", text, ErrTypeMismatch)
		}
		return reflect.ValueOf(f).Convert(field.Type).Interface(), nil
	}
	return nil, fmt.Errorf("unsupported terminal type %s: %w", field.Type, ErrTypeMismatch)
}

func pathSlug(href string) string {
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}
