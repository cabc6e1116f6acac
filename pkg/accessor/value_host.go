package accessor

import "time"

// ValueHost materializes columns as []any holding bool, int32, float64,
// string, time.Time or nil.
type ValueHost struct {
	loc *time.Location
}

// NewValueHost returns a host that builds dates at midnight in loc. A nil
// loc means time.Local.
func NewValueHost(loc *time.Location) ValueHost {
	if loc == nil {
		loc = time.Local
	}
	return ValueHost{loc: loc}
}

// Location returns the zone dates are built in.
func (h ValueHost) Location() *time.Location {
	return h.loc
}

// NewColumn implements Host.
func (h ValueHost) NewColumn(nrows int) ColumnSink[[]any] {
	return &valueColumn{
		values: make([]any, 0, nrows),
		loc:    h.loc,
	}
}

type valueColumn struct {
	values []any
	loc    *time.Location
}

func (c *valueColumn) PushBool(v bool)      { c.values = append(c.values, v) }
func (c *valueColumn) PushInt32(v int32)    { c.values = append(c.values, v) }
func (c *valueColumn) PushNumber(v float64) { c.values = append(c.values, v) }
func (c *valueColumn) PushString(v string)  { c.values = append(c.values, v) }
func (c *valueColumn) PushNull()            { c.values = append(c.values, nil) }

func (c *valueColumn) PushDate(year int, month time.Month, day int) {
	c.values = append(c.values, time.Date(year, month, day, 0, 0, 0, 0, c.loc))
}

func (c *valueColumn) Finish() []any {
	return c.values
}
