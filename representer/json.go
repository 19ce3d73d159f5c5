package representer

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/everest-org/everest/resource"
)

// JSON is the secondary representer. A member document is an object
// with the member's tag as its only key; a collection document wraps
// its members in an "items" array under the collection tag. Nested
// resources appear under their attribute name, either inline or as a
// {"rel", "href"} link object.
type JSON struct {
	registry *resource.Registry
	config   *Config
}

var _ Representer = (*JSON)(nil)

func NewJSON(registry *resource.Registry, config *Config) *JSON {
	return &JSON{registry: registry, config: config}
}

func (j *JSON) ContentType() string {
	return ContentTypeJSON
}

func (j *JSON) WriteMember(w io.Writer, m *resource.Member) error {
	body, err := j.memberObject(m)
	if err != nil {
		return err
	}
	return encodeJSON(w, map[string]any{m.Type().Tag: body})
}

func (j *JSON) WriteCollection(w io.Writer, c *resource.Collection) error {
	rt := c.Type()
	members, err := c.Members()
	if err != nil {
		return err
	}
	items := make([]any, 0, len(members))
	for _, m := range members {
		body, err := j.memberObject(m)
		if err != nil {
			return err
		}
		items = append(items, body)
	}
	return encodeJSON(w, map[string]any{rt.CollectionTag: map[string]any{"items": items}})
}

func (j *JSON) ReadMember(r io.Reader) (*resource.Member, error) {
	doc, err := decodeJSON(r)
	if err != nil {
		return nil, err
	}
	tag, body, err := singleKey(doc)
	if err != nil {
		return nil, err
	}
	rt, err := j.registry.TypeByTag(tag)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tag, ErrUnexpectedElement)
	}
	object, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object: %w", tag, ErrBadDocument)
	}
	return j.readMember(rt, object, tag)
}

func (j *JSON) ReadCollection(r io.Reader) (*CollectionDocument, error) {
	raw, err := decodeJSON(r)
	if err != nil {
		return nil, err
	}
	tag, body, err := singleKey(raw)
	if err != nil {
		return nil, err
	}
	rt, err := j.registry.TypeByCollectionTag(tag)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tag, ErrUnexpectedElement)
	}
	object, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object: %w", tag, ErrBadDocument)
	}

	doc := &CollectionDocument{Type: rt}
	for key, value := range object {
		switch key {
		case "items":
			items, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("%s.items: expected array: %w", tag, ErrBadDocument)
			}
			for _, item := range items {
				entry, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%s.items: expected object: %w", tag, ErrBadDocument)
				}
				m, err := j.readMember(rt, entry, tag+".items")
				if err != nil {
					return nil, err
				}
				doc.Members = append(doc.Members, m)
			}
		case "link":
			if doc.Link != nil {
				return nil, fmt.Errorf("%s: more than one link: %w", tag, ErrUnexpectedElement)
			}
			link, err := parseLinkObject(value, rt.CollectionRelation(), tag)
			if err != nil {
				return nil, err
			}
			doc.Link = link
		default:
			return nil, fmt.Errorf("%s.%s: %w", tag, key, ErrUnexpectedElement)
		}
	}
	return doc, nil
}

func (j *JSON) memberObject(m *resource.Member) (map[string]any, error) {
	rt := m.Type()
	opts := j.config.For(rt.Tag)
	object := map[string]any{}
	for _, attr := range rt.Attributes {
		if opts.skipOnWrite(attr.Name) {
			continue
		}
		value, err := m.Get(attr.Name)
		if err != nil {
			return nil, err
		}
		switch attr.Kind {
		case resource.KIND_TERMINAL:
			if value == nil || reflect.ValueOf(value).IsZero() {
				continue
			}
			if ts, ok := value.(time.Time); ok {
				value = ts.UTC().Format(time.RFC3339)
			}
			object[attr.Name] = value
		case resource.KIND_MEMBER:
			if value == nil {
				continue
			}
			nested := value.(*resource.Member)
			if opts.writeAsLink(attr.Name) {
				object[attr.Name] = linkObject(nested.Type().Relation, nested.Path())
				continue
			}
			body, err := j.memberObject(nested)
			if err != nil {
				return nil, err
			}
			object[attr.Name] = body
		case resource.KIND_COLLECTION:
			col := value.(*resource.Collection)
			if opts.writeAsLink(attr.Name) {
				object[attr.Name] = linkObject(col.Type().CollectionRelation(), col.Path())
				continue
			}
			members, err := col.Members()
			if err != nil {
				return nil, err
			}
			// A collection read as a link stays a link unless inline
			// members were added since.
			if link := m.CollectionLink(attr.Name); link != nil && len(members) == 0 {
				object[attr.Name] = linkObject(link.Rel, link.HRef)
				continue
			}
			items := make([]any, 0, len(members))
			for _, nested := range members {
				body, err := j.memberObject(nested)
				if err != nil {
					return nil, err
				}
				items = append(items, body)
			}
			object[attr.Name] = map[string]any{"items": items}
		}
	}
	return object, nil
}

func (j *JSON) readMember(rt *resource.Type, object map[string]any, path string) (*resource.Member, error) {
	opts := j.config.For(rt.Tag)
	ent, err := rt.NewEntity()
	if err != nil {
		return nil, err
	}
	m, err := rt.NewMember(ent)
	if err != nil {
		return nil, err
	}
	for key, raw := range object {
		keyPath := path + "." + key
		attr, err := rt.Attribute(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keyPath, ErrUnexpectedElement)
		}
		if opts.skipOnRead(attr.Name) {
			continue
		}
		switch attr.Kind {
		case resource.KIND_TERMINAL:
			value, err := jsonTerminal(rt, attr, raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", keyPath, err)
			}
			if err := m.SetTerminal(attr.Name, value); err != nil {
				return nil, err
			}
		case resource.KIND_MEMBER:
			nrt, err := j.registry.TypeFor(attr.Prototype)
			if err != nil {
				return nil, err
			}
			nestedObject, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: expected object: %w", keyPath, ErrBadDocument)
			}
			var nested *resource.Member
			if isLinkObject(nestedObject) {
				link, err := parseLinkObject(raw, nrt.Relation, keyPath)
				if err != nil {
					return nil, err
				}
				nested, err = nrt.LinkMember(pathSlug(link.HRef))
				if err != nil {
					return nil, err
				}
			} else {
				nested, err = j.readMember(nrt, nestedObject, keyPath)
				if err != nil {
					return nil, err
				}
			}
			if err := m.SetMember(attr.Name, nested); err != nil {
				return nil, err
			}
		case resource.KIND_COLLECTION:
			if err := j.readNestedCollection(m, attr, raw, keyPath); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (j *JSON) readNestedCollection(m *resource.Member, attr resource.Attribute, raw any, path string) error {
	nrt, err := j.registry.TypeFor(attr.Prototype)
	if err != nil {
		return err
	}
	object, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: expected object: %w", path, ErrBadDocument)
	}
	if isLinkObject(object) {
		link, err := parseLinkObject(raw, nrt.CollectionRelation(), path)
		if err != nil {
			return err
		}
		m.SetCollectionLink(attr.Name, link)
		return nil
	}
	got, err := m.Get(attr.Name)
	if err != nil {
		return err
	}
	col := got.(*resource.Collection)
	for key, value := range object {
		switch key {
		case "items":
			items, ok := value.([]any)
			if !ok {
				return fmt.Errorf("%s.items: expected array: %w", path, ErrBadDocument)
			}
			for _, item := range items {
				entry, ok := item.(map[string]any)
				if !ok {
					return fmt.Errorf("%s.items: expected object: %w", path, ErrBadDocument)
				}
				nested, err := j.readMember(nrt, entry, path+".items")
				if err != nil {
					return err
				}
				if err := col.Add(nested); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%s.%s: %w", path, key, ErrUnexpectedElement)
		}
	}
	return nil
}

func encodeJSON(w io.Writer, doc any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func decodeJSON(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse: %v: %w", err, ErrBadDocument)
	}
	return doc, nil
}

func singleKey(doc map[string]any) (string, any, error) {
	if len(doc) != 1 {
		return "", nil, fmt.Errorf("expected a single root key: %w", ErrBadDocument)
	}
	for key, value := range doc {
		return key, value, nil
	}
	return "", nil, ErrBadDocument
}

func linkObject(rel, href string) map[string]any {
	return map[string]any{"rel": rel, "href": href}
}

func isLinkObject(object map[string]any) bool {
	_, found := object["href"]
	return found
}

func parseLinkObject(raw any, wantRel, path string) (*resource.Link, error) {
	object, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected link object: %w", path, ErrBadDocument)
	}
	rel, _ := object["rel"].(string)
	href, _ := object["href"].(string)
	if rel != wantRel {
		return nil, fmt.Errorf("%s: rel %q, want %q: %w", path, rel, wantRel, ErrRelationMismatch)
	}
	if href == "" {
		return nil, fmt.Errorf("%s: link without href: %w", path, ErrBadDocument)
	}
	return &resource.Link{Rel: rel, HRef: href}, nil
}

func jsonTerminal(rt *resource.Type, attr resource.Attribute, raw any) (any, error) {
	field, found := rt.EntityType().Elem().FieldByName(attr.EntityAttr)
	if !found {
		return nil, fmt.Errorf("%s: %w", attr.EntityAttr, resource.ErrUnknownAttribute)
	}
	if field.Type == timeType {
		text, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected timestamp string: %w", ErrTypeMismatch)
		}
		ts, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return nil, fmt.Errorf("%q is not a timestamp: %w", text, ErrTypeMismatch)
		}
		return ts, nil
	}
	switch field.Type.Kind() {
	case reflect.String:
		text, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string: %w", ErrTypeMismatch)
		}
		return text, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		number, ok := raw.(json.Number)
		if !ok {
			return nil, fmt.Errorf("expected integer: %w", ErrTypeMismatch)
		}
		n, err := number.Int64()
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer: %w", number, ErrTypeMismatch)
		}
		return reflect.ValueOf(n).Convert(field.Type).Interface(), nil
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean: %w", ErrTypeMismatch)
		}
		return b, nil
	case reflect.Float32, reflect.Float64:
		number, ok := raw.(json.Number)
		if !ok {
			return nil, fmt.Errorf("expected number: %w", ErrTypeMismatch)
		}
		f, err := number.Float64()
		if err != nil {
			return nil, fmt.Errorf("%q is not a number: %w", number, ErrTypeMismatch)
		}
		return reflect.ValueOf(f).Convert(field.Type).Interface(), nil
	}
	return nil, fmt.Errorf("unsupported terminal type %s: %w", field.Type, ErrTypeMismatch)
}
