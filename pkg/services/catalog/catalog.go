// Package catalog holds the customer product catalog: product ids, their alias
// names and units, and the (alias, unit) → product id index used to resolve
// matched names back to products.
package catalog

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Alias is one name a product is known by, bound to the unit it is sold in.
type Alias struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// Entry is a product with all of its aliases.
type Entry struct {
	ID      string  `json:"id"`
	Aliases []Alias `json:"aliases"`
}

// Conflict records an alias that was claimed by a second product id. The first
// id is kept.
type Conflict struct {
	Alias    Alias  `json:"alias"`
	Kept     string `json:"kept"`
	Rejected string `json:"rejected"`
}

// Row is one raw catalog line as read from a source.
type Row struct {
	ProductID string
	Name      string
	Unit      string
}

// Catalog is the product index. It is immutable once built and safe for
// concurrent readers.
type Catalog struct {
	entries   map[string]*Entry
	ids       []string
	index     map[Alias]string
	aliases   []Alias
	byName    map[string]string
	conflicts []Conflict
}

var aliasSeparator = regexp.MustCompile(`[\\/]`)

// Build indexes rows in order. Rows without a usable product id or name are
// skipped; an alias claimed by two ids keeps the first.
func Build(rows []Row, logger logrus.FieldLogger) *Catalog {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Catalog{
		entries: make(map[string]*Entry),
		index:   make(map[Alias]string),
		byName:  make(map[string]string),
	}
	for i, row := range rows {
		id := strings.TrimSpace(row.ProductID)
		if !identifying(id) {
			continue
		}
		name := strings.TrimSpace(row.Name)
		if name == "" {
			logger.WithFields(logrus.Fields{"row": i, "product_id": id}).Warn("catalog row has no product name")
			continue
		}
		unit := NormalizeUnit(row.Unit)
		for _, part := range aliasSeparator.Split(name, -1) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			c.add(c.entry(id), Alias{Name: part, Unit: unit}, logger)
		}
		if _, ok := c.entries[id]; !ok {
			logger.WithFields(logrus.Fields{"row": i, "product_id": id, "name": name}).Warn("catalog row has no usable alias")
		}
	}
	return c
}

// entry returns the product for id, registering it on first use.
func (c *Catalog) entry(id string) *Entry {
	e, ok := c.entries[id]
	if !ok {
		e = &Entry{ID: id}
		c.entries[id] = e
		c.ids = append(c.ids, id)
	}
	return e
}

func (c *Catalog) add(entry *Entry, a Alias, logger logrus.FieldLogger) {
	if !hasAlias(entry.Aliases, a) {
		entry.Aliases = append(entry.Aliases, a)
	}
	kept, ok := c.index[a]
	if !ok {
		c.index[a] = entry.ID
		c.aliases = append(c.aliases, a)
		if _, seen := c.byName[a.Name]; !seen {
			c.byName[a.Name] = entry.ID
		}
		return
	}
	if kept == entry.ID {
		return
	}
	c.conflicts = append(c.conflicts, Conflict{Alias: a, Kept: kept, Rejected: entry.ID})
	logger.WithFields(logrus.Fields{
		"name":     a.Name,
		"unit":     a.Unit,
		"kept":     kept,
		"rejected": entry.ID,
	}).Warn("duplicate catalog alias, keeping first product id")
}

func hasAlias(list []Alias, a Alias) bool {
	for _, v := range list {
		if v == a {
			return true
		}
	}
	return false
}

// identifying reports whether a product id cell holds a real id. Spreadsheet
// exports write empty cells as "nan".
func identifying(id string) bool {
	if id == "" {
		return false
	}
	switch strings.ToLower(id) {
	case "nan", "null", "none":
		return false
	}
	return true
}

// NormalizeUnit maps catalog units onto the units written on orders.
func NormalizeUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if strings.EqualFold(unit, "KG") {
		return "斤"
	}
	return unit
}

// Lookup returns the product id registered for the exact (name, unit) pair.
func (c *Catalog) Lookup(name, unit string) (string, bool) {
	id, ok := c.index[Alias{Name: name, Unit: unit}]
	return id, ok
}

// LookupName returns the id of the first registered alias with the given name,
// regardless of unit.
func (c *Catalog) LookupName(name string) (string, bool) {
	id, ok := c.byName[name]
	return id, ok
}

// IDsForName returns every product id an alias name maps to, in registration
// order.
func (c *Catalog) IDsForName(name string) []string {
	var ids []string
	for _, a := range c.aliases {
		if a.Name != name {
			continue
		}
		id := c.index[a]
		if !containsString(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Has reports whether id is a catalog product.
func (c *Catalog) Has(id string) bool {
	_, ok := c.entries[id]
	return ok
}

// Entry returns the product with the given id.
func (c *Catalog) Entry(id string) (Entry, bool) {
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return Entry{ID: e.ID, Aliases: append([]Alias(nil), e.Aliases...)}, true
}

// IDs returns product ids in first-seen order.
func (c *Catalog) IDs() []string { return append([]string(nil), c.ids...) }

// Aliases returns the indexed (name, unit) pairs in registration order.
func (c *Catalog) Aliases() []Alias { return append([]Alias(nil), c.aliases...) }

// Names returns the alias name of every indexed pair in registration order. A
// name sold in several units appears once per unit.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.aliases))
	for i, a := range c.aliases {
		names[i] = a.Name
	}
	return names
}

// Conflicts returns the aliases rejected while building.
func (c *Catalog) Conflicts() []Conflict { return append([]Conflict(nil), c.conflicts...) }

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.ids) }

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
