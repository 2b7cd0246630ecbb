package export

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
)

// pastConfig is implemented by descriptions carrying the second override
// channel (ConfigWithPast and families embedding it).
type pastConfig interface {
	UsePast() bool
	ConfigValuesOverride() Overrides
}

// DescribeConfig pretty prints an export description, for logs and CLIs.
func DescribeConfig(c Config) string {
	var buf bytes.Buffer
	w := func(format string, args ...any) {
		if len(args) == 0 {
			buf.WriteString(format)
		} else {
			buf.WriteString(fmt.Sprintf(format, args...))
		}
	}
	w("ONNX Export Config:\n")
	w("\tOpset:\t%d\n", c.DefaultOpset())
	if modelType := c.ModelConfig().ModelType(); modelType != "" {
		w("\tModel type:\t%s\n", modelType)
	}
	if pc, ok := c.(pastConfig); ok {
		w("\tWith past:\t%v\n", pc.UsePast())
	}

	writeAxisMap := func(title string, axisMap AxisMap) {
		w("\t%s:\n", title)
		for _, name := range slices.Sorted(maps.Keys(axisMap)) {
			axes := axisMap[name]
			w("\t\t%s: [", name)
			for ii, axis := range slices.Sorted(maps.Keys(axes)) {
				if ii > 0 {
					w(", ")
				}
				w("%d=%s", axis, axes[axis])
			}
			w("]\n")
		}
	}
	writeAxisMap("Inputs", c.Inputs())
	writeAxisMap("Outputs", c.Outputs())

	writeOverrides := func(title string, overrides Overrides) {
		if overrides == nil {
			return
		}
		w("\t%s: [", title)
		for ii, key := range slices.Sorted(maps.Keys(overrides)) {
			if ii > 0 {
				w(", ")
			}
			w("%s=%v", key, overrides[key])
		}
		w("]\n")
	}
	writeOverrides("Values override", c.ValuesOverride())
	if pc, ok := c.(pastConfig); ok {
		writeOverrides("Config values override", pc.ConfigValuesOverride())
	}

	w("\tExternal data above:\t%s\n", humanize.IBytes(uint64(ExternalDataSizeLimit)))
	return buf.String()
}
