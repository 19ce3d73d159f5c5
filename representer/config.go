package representer

// AttributeOptions tunes how one resource attribute is represented.
type AttributeOptions struct {
	// Ignore drops the attribute from documents in both directions.
	Ignore bool
	// IgnoreOnRead drops the attribute when reading documents.
	IgnoreOnRead bool
	// IgnoreOnWrite drops the attribute when writing documents.
	IgnoreOnWrite bool
	// WriteAsLink writes a nested member or collection attribute as a
	// link element instead of inline content.
	WriteAsLink bool
}

// Options maps resource attribute names to their representer options.
type Options map[string]AttributeOptions

// Config carries per resource type representer options, keyed by the
// resource's document tag.
type Config struct {
	byTag map[string]Options
}

func NewConfig() *Config {
	return &Config{byTag: map[string]Options{}}
}

// Set replaces the options of one attribute of the tagged resource.
func (c *Config) Set(tag, attribute string, opts AttributeOptions) {
	options, found := c.byTag[tag]
	if !found {
		options = Options{}
		c.byTag[tag] = options
	}
	options[attribute] = opts
}

// For returns the options of the tagged resource; attributes without
// explicit options report the zero AttributeOptions.
func (c *Config) For(tag string) Options {
	if c == nil {
		return nil
	}
	return c.byTag[tag]
}

func (o Options) skipOnWrite(attribute string) bool {
	opts := o[attribute]
	return opts.Ignore || opts.IgnoreOnWrite
}

func (o Options) skipOnRead(attribute string) bool {
	opts := o[attribute]
	return opts.Ignore || opts.IgnoreOnRead
}

func (o Options) writeAsLink(attribute string) bool {
	return o[attribute].WriteAsLink
}
