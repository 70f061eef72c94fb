package meter

import "fmt"

// MaxReadItems is the number of numeric slots the instrument exposes for a
// read cycle.
const MaxReadItems = 6

// DataItem is one measurable quantity selectable for a read cycle. Code is
// the device-side function name assigned to a numeric slot.
type DataItem struct {
	Name string
	Code string
	Help string
}

var dataItems = []DataItem{
	{"voltage", "U", "RMS voltage"},
	{"current", "I", "RMS current"},
	{"power", "P", "Active power"},
	{"apparent-power", "S", "Apparent power"},
	{"reactive-power", "Q", "Reactive power"},
	{"power-factor", "LAMBDA", "Power factor"},
	{"frequency", "FU", "Voltage frequency"},
	{"energy", "WH", "Integrated energy"},
	{"charge", "AH", "Integrated current"},
}

// DataItems returns the selectable data items, in declaration order.
func DataItems() []DataItem {
	return dataItems
}

// LookupItem resolves a data item name to its device code. Unknown names
// are a usage error.
func LookupItem(name string) (DataItem, error) {
	for _, it := range dataItems {
		if it.Name == name {
			return it, nil
		}
	}
	return DataItem{}, &UsageError{Message: fmt.Sprintf("unknown data item %q", name)}
}
