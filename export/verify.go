package export

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	ort "github.com/yalue/onnxruntime_go"
	"k8s.io/klog/v2"
)

// VerifyExportedModel checks an exported ONNX file against the description
// that drove the export: the file's input and output tensor names must match
// the description exactly, and every axis the description declares dynamic
// must still be dynamic in the file.
//
// The file is introspected through the ONNX Runtime bindings, so the ORT
// environment must be initialized (ort.SetSharedLibraryPath +
// ort.InitializeEnvironment) before calling.
func VerifyExportedModel(onnxModelPath string, c Config) error {
	inputInfos, outputInfos, err := ort.GetInputOutputInfo(onnxModelPath)
	if err != nil {
		return errors.Wrapf(err, "failed to inspect exported model in %s", onnxModelPath)
	}
	if err = verifyTensorInfos("input", inputInfos, c.Inputs()); err != nil {
		return err
	}
	if err = verifyTensorInfos("output", outputInfos, c.Outputs()); err != nil {
		return err
	}
	klog.V(1).Infof("verified exported model %s: %d inputs, %d outputs", onnxModelPath, len(inputInfos), len(outputInfos))
	return nil
}

// verifyTensorInfos checks one side (inputs or outputs) of the exported
// model against the corresponding axis table.
func verifyTensorInfos(kind string, infos []ort.InputOutputInfo, axisMap AxisMap) error {
	seen := make(map[string]bool, len(infos))
	for _, info := range infos {
		seen[info.Name] = true
		axes, found := axisMap[info.Name]
		if !found {
			return errors.Errorf("exported model declares %s tensor %q, which the export config does not describe", kind, info.Name)
		}
		rank := len(info.Dimensions)
		for axis, symbol := range axes {
			if axis < 0 || axis >= rank {
				return errors.Errorf("%s tensor %q: dynamic axis %d (%q) is out of range for rank %d", kind, info.Name, axis, symbol, rank)
			}
			if info.Dimensions[axis] > 0 {
				return errors.Errorf("%s tensor %q: axis %d (%q) must be dynamic, but the exported model fixed it to %d", kind, info.Name, axis, symbol, info.Dimensions[axis])
			}
		}
	}
	for name := range axisMap {
		if !seen[name] {
			return errors.Errorf("export config describes %s tensor %q, which the exported model does not declare", kind, name)
		}
	}
	return nil
}

// ValidateOutputs compares candidate output tensors against reference ones,
// element-wise, within an absolute tolerance. It is the post-export sanity
// check that the traced graph still computes what the source model computes.
// Both sets must have the same tensor names, shapes and dtypes.
func ValidateOutputs(reference, candidate map[string]*tensors.Tensor, atol float64) error {
	klog.V(1).Infof("validating %d output tensors (atol=%g)", len(reference), atol)
	for name, ref := range reference {
		got, found := candidate[name]
		if !found {
			return errors.Errorf("candidate outputs are missing tensor %q", name)
		}
		if err := compareTensors(name, ref, got, atol); err != nil {
			return err
		}
	}
	for name := range candidate {
		if _, found := reference[name]; !found {
			return errors.Errorf("candidate outputs have unexpected tensor %q", name)
		}
	}
	return nil
}

func compareTensors(name string, ref, got *tensors.Tensor, atol float64) error {
	refShape, gotShape := ref.Shape(), got.Shape()
	if !refShape.Equal(gotShape) {
		return errors.Errorf("output %q: reference shape %s != candidate shape %s", name, refShape, gotShape)
	}
	switch refShape.DType {
	case dtypes.Float32:
		return compareFlat(name, tensors.MustCopyFlatData[float32](ref), tensors.MustCopyFlatData[float32](got), atol,
			func(a, b float32) float64 { return float64(math32.Abs(a - b)) })
	case dtypes.Float16:
		return compareFlat(name, tensors.MustCopyFlatData[float16.Float16](ref), tensors.MustCopyFlatData[float16.Float16](got), atol,
			func(a, b float16.Float16) float64 { return float64(math32.Abs(a.Float32() - b.Float32())) })
	case dtypes.Float64:
		return compareFlat(name, tensors.MustCopyFlatData[float64](ref), tensors.MustCopyFlatData[float64](got), atol,
			func(a, b float64) float64 { return math.Abs(a - b) })
	case dtypes.Int64:
		return compareFlat(name, tensors.MustCopyFlatData[int64](ref), tensors.MustCopyFlatData[int64](got), atol,
			func(a, b int64) float64 { return math.Abs(float64(a - b)) })
	case dtypes.Int32:
		return compareFlat(name, tensors.MustCopyFlatData[int32](ref), tensors.MustCopyFlatData[int32](got), atol,
			func(a, b int32) float64 { return math.Abs(float64(a - b)) })
	default:
		return errors.Errorf("output %q: validation does not support dtype %s", name, refShape.DType)
	}
}

func compareFlat[T any](name string, ref, got []T, atol float64, absDiff func(a, b T) float64) error {
	for i := range ref {
		if diff := absDiff(ref[i], got[i]); diff > atol {
			return errors.Errorf("output %q differs at flat index %d: reference=%v, candidate=%v (abs diff %g > tolerance %g)",
				name, i, ref[i], got[i], diff, atol)
		}
	}
	return nil
}
