package dyncol

// Param binds one placeholder to one value
type Param struct {
	Name  string
	Value any
}

// Params is the ordered parameter list produced with an expression.
// Values are plain Go types ready for a database/sql driver.
type Params []Param

// Len returns the number of bound parameters
func (p Params) Len() int { return len(p) }

// Names returns the placeholder names in binding order
func (p Params) Names() []string {
	out := make([]string, len(p))
	for i, prm := range p {
		out[i] = prm.Name
	}
	return out
}

// Lookup returns the value bound to name
func (p Params) Lookup(name string) (any, bool) {
	for _, prm := range p {
		if prm.Name == name {
			return prm.Value, true
		}
	}
	return nil, false
}

// Map returns the parameters as a name to value map
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p))
	for _, prm := range p {
		m[prm.Name] = prm.Value
	}
	return m
}

// Expression is a column construction expression plus its bound parameters.
// Every placeholder in SQL appears exactly once in Params and vice versa.
type Expression struct {
	SQL    string `json:"sql"`
	Params Params `json:"-"`
}

// IsNull reports whether the expression persists nothing
func (e Expression) IsNull() bool {
	return e.SQL == "" || e.SQL == NullExpression
}
