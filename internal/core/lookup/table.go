// Package lookup holds the dictionaries that translate long-form spreadsheet
// values (causes, line names, fault phases) into short canonical codes.
package lookup

// Pair is one (key, value) entry of a dictionary.
type Pair struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

// Table is an ordered list of pairs with last-write-wins resolution.
// It is immutable once built.
type Table struct {
	name  string
	pairs []Pair
	index map[string]string
}

// NewTable builds a table applying pairs in order; a repeated key keeps its last value.
func NewTable(name string, pairs []Pair) *Table {
	t := &Table{
		name:  name,
		pairs: make([]Pair, len(pairs)),
		index: make(map[string]string, len(pairs)),
	}
	copy(t.pairs, pairs)
	for _, p := range t.pairs {
		t.index[p.Key] = p.Value
	}
	return t
}

// Name identifies the table in logs and errors.
func (t *Table) Name() string {
	return t.name
}

// Canonicalize replaces value by its mapped code on an exact match and
// otherwise returns it unchanged.
func (t *Table) Canonicalize(value string) string {
	if t == nil {
		return value
	}
	if mapped, ok := t.index[value]; ok {
		return mapped
	}
	return value
}

// Lookup returns the effective value for key.
func (t *Table) Lookup(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.index[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Pairs returns a copy of the declared pairs in order, duplicates included.
func (t *Table) Pairs() []Pair {
	out := make([]Pair, len(t.pairs))
	copy(out, t.pairs)
	return out
}

// Duplicates lists every key declared more than once with all its values in
// declaration order. The last value is the effective one.
func (t *Table) Duplicates() map[string][]string {
	seen := make(map[string][]string)
	for _, p := range t.pairs {
		seen[p.Key] = append(seen[p.Key], p.Value)
	}
	dups := make(map[string][]string)
	for k, values := range seen {
		if len(values) > 1 {
			dups[k] = values
		}
	}
	return dups
}

// Extend returns a new table with extra pairs applied after the existing ones.
func (t *Table) Extend(extra []Pair) *Table {
	all := make([]Pair, 0, len(t.pairs)+len(extra))
	all = append(all, t.pairs...)
	all = append(all, extra...)
	return NewTable(t.name, all)
}
