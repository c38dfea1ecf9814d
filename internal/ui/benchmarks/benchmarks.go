// Package benchmarks provides timing estimates for install pipeline steps.
package benchmarks

import "time"

// DefaultTimings are median step durations from test runs (seconds).
var DefaultTimings = map[string]int{
	"job.init":              1,
	"device.probe":          3,
	"driver.download":       30,
	"driver.verify":         3,
	"driver.extract":        10,
	"driver.stageDriver":    8,
	"driver.registerDriver": 5,
	"device.ensurePort":     2,
	"device.ensureQueue":    3,
	"device.finalVerify":    2,
}

// StepOrder defines the sequence of pipeline steps for ETA calculation.
var StepOrder = []string{
	"job.init",
	"device.probe",
	"driver.download",
	"driver.verify",
	"driver.extract",
	"driver.stageDriver",
	"driver.registerDriver",
	"device.ensurePort",
	"device.ensureQueue",
	"device.finalVerify",
}

// EstimateRemaining calculates the estimated time remaining based on the
// current step, its elapsed time, and the actual durations of completed
// steps.
func EstimateRemaining(currentStep string, stepElapsed time.Duration, completed map[string]time.Duration) time.Duration {
	return EstimateRemainingWithScale(currentStep, stepElapsed, PerformanceScale(currentStep, stepElapsed, completed))
}

// EstimateRemainingWithScale calculates ETA while applying a performance
// scale factor.
func EstimateRemainingWithScale(currentStep string, stepElapsed time.Duration, scale float64) time.Duration {
	currentIdx := -1
	for i, s := range StepOrder {
		if s == currentStep {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		return 0
	}

	var remaining time.Duration

	// For the current step: max(0, expected - elapsed)
	if expected, ok := DefaultTimings[currentStep]; ok {
		expectedDur := time.Duration(float64(expected) * float64(time.Second) * scale)
		if expectedDur > stepElapsed {
			remaining += expectedDur - stepElapsed
		}
	}

	for i := currentIdx + 1; i < len(StepOrder); i++ {
		if expected, ok := DefaultTimings[StepOrder[i]]; ok {
			remaining += time.Duration(float64(expected) * float64(time.Second) * scale)
		}
	}

	return remaining
}

// PerformanceScale derives a speed multiplier from observed-vs-expected step
// durations. Example: expected 30s, observed 45s => scale=1.5 (future ETAs
// are stretched by 50%).
func PerformanceScale(currentStep string, stepElapsed time.Duration, completed map[string]time.Duration) float64 {
	var expectedTotal time.Duration
	var actualTotal time.Duration

	for step, actual := range completed {
		expectedSecs, ok := DefaultTimings[step]
		if !ok {
			continue
		}
		expectedTotal += time.Duration(expectedSecs) * time.Second
		actualTotal += actual
	}

	// If the current step is overrunning, fold it in immediately so the ETA
	// adapts quickly.
	if expectedSecs, ok := DefaultTimings[currentStep]; ok && stepElapsed > 0 {
		expectedCurrent := time.Duration(expectedSecs) * time.Second
		if stepElapsed > expectedCurrent {
			expectedTotal += expectedCurrent
			actualTotal += stepElapsed
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}
	return float64(actualTotal) / float64(expectedTotal)
}
