// Package model provides the estimator contract shared by every flufit model family.
//
// The split-and-evaluate harness never touches model internals. It only relies on
// the small interfaces declared here:
//
//   - Estimator: Fit on a design matrix and outcome vector, Predict new rows
//   - ProbabilisticClassifier: class probabilities for ROC-AUC
//   - LikelihoodModel: log-likelihood and degrees of freedom for AIC / BIC
//   - CoefficientReporter / ImportanceReporter: per-feature estimates
//   - WarningReporter: non-fatal fit problems (rank deficiency, separation)
//
// Every estimator tracks its trained state with a StateManager:
//
//	type MyModel struct {
//		State *model.StateManager
//	}
//
//	func (m *MyModel) Fit(X, y mat.Matrix) error {
//		// training logic
//		m.State.SetFitted()
//		return nil
//	}
package model

// StateManager tracks whether an estimator has been fitted and the shape it was
// fitted on. Fields are exported for gob encoding.
type StateManager struct {
	Fitted    bool
	NFeatures int
	NSamples  int
}

// NewStateManager returns an unfitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether Fit completed successfully.
func (s *StateManager) IsFitted() bool {
	return s != nil && s.Fitted
}

// SetFitted marks the estimator as trained.
func (s *StateManager) SetFitted() {
	s.Fitted = true
}

// SetDimensions records the training shape.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// Dimensions returns the recorded training shape.
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	return s.NFeatures, s.NSamples
}

// Reset returns the estimator to its unfitted state.
func (s *StateManager) Reset() {
	*s = StateManager{}
}
