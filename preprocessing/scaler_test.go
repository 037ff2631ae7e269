package preprocessing_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/preprocessing"
)

const epsilon = 1e-10 // Tolerance for floating-point comparisons

func TestStandardScaler_BasicFunctionality(t *testing.T) {
	// Feature 1: [1, 2, 3] -> mean=2, sd=1
	// Feature 2: [4, 6, 8] -> mean=6, sd=2
	X := mat.NewDense(3, 2, []float64{
		1.0, 4.0,
		2.0, 6.0,
		3.0, 8.0,
	})

	scaler := preprocessing.NewStandardScalerDefault()
	if err := scaler.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	expectedMean := []float64{2.0, 6.0}
	expectedStd := []float64{1.0, 2.0}
	for i := range expectedMean {
		if math.Abs(scaler.Mean[i]-expectedMean[i]) > epsilon {
			t.Errorf("Mean[%d]: expected %f, got %f", i, expectedMean[i], scaler.Mean[i])
		}
		if math.Abs(scaler.Scale[i]-expectedStd[i]) > epsilon {
			t.Errorf("Scale[%d]: expected %f, got %f", i, expectedStd[i], scaler.Scale[i])
		}
	}

	XScaled, err := scaler.Transform(X)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	expectedScaled := []float64{
		-1, -1,
		0, 0,
		1, 1,
	}
	r, c := XScaled.Dims()
	if r != 3 || c != 2 {
		t.Fatalf("Expected 3x2 matrix, got %dx%d", r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.Abs(XScaled.At(i, j)-expectedScaled[i*c+j]) > epsilon {
				t.Errorf("XScaled[%d][%d]: expected %f, got %f", i, j, expectedScaled[i*c+j], XScaled.At(i, j))
			}
		}
	}
}

func TestStandardScaler_ConstantColumn(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{5, 5, 5, 5})
	scaler := preprocessing.NewStandardScalerDefault()

	XScaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if scaler.Scale[0] != 1.0 {
		t.Errorf("constant column should keep scale 1, got %f", scaler.Scale[0])
	}
	for i := 0; i < 4; i++ {
		if XScaled.At(i, 0) != 0 {
			t.Errorf("row %d: expected 0, got %f", i, XScaled.At(i, 0))
		}
	}
}

func TestStandardScaler_InverseTransform(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1.5, 10,
		-2, 20,
		7, 45,
	})
	scaler := preprocessing.NewStandardScalerDefault()

	XScaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	back, err := scaler.InverseTransform(XScaled)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}
	if !mat.EqualApprox(X, back, 1e-9) {
		t.Errorf("InverseTransform did not restore input:\n%v", mat.Formatted(back))
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "transform before fit",
			run: func() error {
				_, err := preprocessing.NewStandardScalerDefault().Transform(mat.NewDense(1, 1, nil))
				return err
			},
		},
		{
			name: "feature count mismatch",
			run: func() error {
				s := preprocessing.NewStandardScalerDefault()
				if err := s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
					return nil
				}
				_, err := s.Transform(mat.NewDense(1, 3, nil))
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
