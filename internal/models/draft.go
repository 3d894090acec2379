package models

import "time"

// Draft is an in-progress candidacy that has no NUPCAN yet. Fields holds what
// the candidate filled in so far, keyed by form field name.
type Draft struct {
	ID         string
	ConcoursID string
	Fields     map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (d *Draft) Clone() *Draft {
	c := *d
	c.Fields = make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		c.Fields[k] = v
	}
	return &c
}
