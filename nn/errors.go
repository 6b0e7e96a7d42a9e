package nn

import (
	"github.com/pkg/errors"

	"mlpnet/tensor"
)

var (
	// ErrDimensionMismatch reports inputs, labels or parameters whose shapes
	// disagree with the layer widths or with each other.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidConfig reports a network or training configuration that
	// cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidLabel reports a label outside [0, classes).
	ErrInvalidLabel = errors.New("invalid label")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}

func dimErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDimensionMismatch, format, args...)
}

// shapeErr converts a tensor shape error into ErrDimensionMismatch while
// keeping its message.
func shapeErr(err error, context string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tensor.ErrShape) {
		return dimErrorf("%s: %v", context, err)
	}
	return errors.Wrap(err, context)
}
