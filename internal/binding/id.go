package binding

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// WidgetIDPrefix starts every widget identifier.
const WidgetIDPrefix = "ckeditor-widget-"

// IDGenerator hands out binding identifiers.
type IDGenerator interface {
	NextID() string
}

// UUIDs generates random UUID identifiers.
type UUIDs struct{}

// NextID returns a new random UUID.
func (UUIDs) NextID() string {
	return uuid.NewString()
}

// CounterIDs generates "0", "1", "2", ... The zero value is ready to use.
type CounterIDs struct {
	n atomic.Uint64
}

// NextID returns the next counter value.
func (c *CounterIDs) NextID() string {
	return strconv.FormatUint(c.n.Add(1)-1, 10)
}
