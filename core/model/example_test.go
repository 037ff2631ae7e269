package model_test

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ezoic/flufit/core/model"
)

// ExampleStateManager demonstrates fitted-state tracking
func ExampleStateManager() {
	state := model.NewStateManager()
	fmt.Printf("Initially fitted: %t\n", state.IsFitted())

	state.SetFitted()
	state.SetDimensions(3, 511)
	nFeatures, nSamples := state.Dimensions()
	fmt.Printf("After SetFitted: %t (%d features, %d samples)\n", state.IsFitted(), nFeatures, nSamples)

	state.Reset()
	fmt.Printf("After Reset: %t\n", state.IsFitted())

	// Output: Initially fitted: false
	// After SetFitted: true (3 features, 511 samples)
	// After Reset: false
}

// ExampleCoefficient_MarshalJSON shows undefined coefficients serialised as null
func ExampleCoefficient_MarshalJSON() {
	coefs := []model.Coefficient{
		{Term: model.InterceptTerm, Estimate: 99.14, StdErr: 0.08},
		{Term: "CoughYN2_Yes", Estimate: math.NaN(), StdErr: math.NaN()},
	}
	out, _ := json.Marshal(coefs)
	fmt.Println(string(out))

	// Output: [{"term":"(Intercept)","estimate":99.14,"std_error":0.08},{"term":"CoughYN2_Yes","estimate":null,"std_error":null}]
}
