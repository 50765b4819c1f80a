package scopes

// Category is a group of results registered on a SearchReply.
type Category struct {
	id         string
	title      string
	icon       string
	template   string
	headerLink *CannedQuery
}

// ID returns the category id.
func (c *Category) ID() string { return c.id }

// Title returns the display title.
func (c *Category) Title() string { return c.title }

// Icon returns the icon path.
func (c *Category) Icon() string { return c.icon }

// Template returns the renderer template JSON.
func (c *Category) Template() string { return c.template }
