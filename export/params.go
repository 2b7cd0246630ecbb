package export

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/pkg/errors"
)

const (
	// DefaultOpsetVersion is the ONNX opset version targeted when a model
	// family doesn't request a different one.
	DefaultOpsetVersion = 11

	// ExternalDataSizeLimit is the serialized parameters size, in bytes, at
	// which the exporter must store weights in sidecar files instead of
	// inline in the model file. Protobuf caps a single file at 2GiB.
	ExternalDataSizeLimit = 2 * 1024 * 1024 * 1024
)

// ParameterFormat is the numeric storage format of serialized model weights.
type ParameterFormat int

const (
	Float32 ParameterFormat = iota
	Float16
	BFloat16
	Float64
	Int8
)

// Size returns the width in bytes of one parameter stored in the format.
func (f ParameterFormat) Size() int64 {
	switch f {
	case Float32:
		return 4
	case Float16, BFloat16:
		return 2
	case Float64:
		return 8
	case Int8:
		return 1
	}
	return 0
}

// DType converts the parameter format to the corresponding gomlx data type.
func (f ParameterFormat) DType() (dtypes.DType, error) {
	switch f {
	case Float32:
		return dtypes.Float32, nil
	case Float16:
		return dtypes.Float16, nil
	case BFloat16:
		return dtypes.BFloat16, nil
	case Float64:
		return dtypes.Float64, nil
	case Int8:
		return dtypes.Int8, nil
	default:
		return dtypes.InvalidDType, errors.Errorf("unsupported/unknown parameter format %v", f)
	}
}

// String implements fmt.Stringer.
func (f ParameterFormat) String() string {
	switch f {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	}
	return fmt.Sprintf("ParameterFormat(%d)", int(f))
}

// SerializedParametersSize returns the size in bytes of numParameters
// serialized in the given format. It does no validation: a negative count
// propagates into a negative size, callers are expected to pass counts
// straight from the model.
func SerializedParametersSize(numParameters int64, format ParameterFormat) int64 {
	return numParameters * format.Size()
}

// UseExternalDataFormat reports whether a model with numParameters float32
// weights must be exported with the external data format, that is, whether
// the serialized size reaches ExternalDataSizeLimit.
func UseExternalDataFormat(numParameters int64) bool {
	return SerializedParametersSize(numParameters, Float32) >= ExternalDataSizeLimit
}

// FormatParametersSize returns the serialized size as a human-readable
// string, e.g. "2.0 GiB".
func FormatParametersSize(numParameters int64, format ParameterFormat) string {
	size := SerializedParametersSize(numParameters, format)
	if size < 0 {
		return fmt.Sprintf("%d B", size)
	}
	return humanize.IBytes(uint64(size))
}
