package persona

// Store exposes persona lookup for the prompt composer and HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// Catalog is a read-only Store indexed by persona id. Later entries with a
// duplicate id are ignored.
type Catalog struct {
	order []Persona
	byID  map[string]int
}

var _ Store = (*Catalog)(nil)

// NewCatalog indexes items in the given order.
func NewCatalog(items []Persona) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(items))}
	for _, item := range items {
		if _, dup := c.byID[item.ID]; dup || item.ID == "" {
			continue
		}
		c.byID[item.ID] = len(c.order)
		c.order = append(c.order, item)
	}
	return c
}

// List returns a copy of the catalog in insertion order.
func (c *Catalog) List() []Persona {
	return append([]Persona(nil), c.order...)
}

// FindByID looks up a persona by identifier.
func (c *Catalog) FindByID(id string) (Persona, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Persona{}, false
	}
	return c.order[i], true
}

// Resolve returns the persona for id, or DefaultID when id is empty.
func Resolve(s Store, id string) (Persona, bool) {
	if id == "" {
		id = DefaultID
	}
	return s.FindByID(id)
}
