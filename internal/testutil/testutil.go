// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common numeric assertions and track/cluster
// fixtures used across the geometry, propagation and resolver tests.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// VecNear reports whether every component of got is within tol of want.
func VecNear(got, want r3.Vec, tol float64) bool {
	return scalar.EqualWithinAbs(got.X, want.X, tol) &&
		scalar.EqualWithinAbs(got.Y, want.Y, tol) &&
		scalar.EqualWithinAbs(got.Z, want.Z, tol)
}

// AssertVecNear fails the test if got and want differ by more than tol in
// any component.
func AssertVecNear(t testing.TB, got, want r3.Vec, tol float64) {
	t.Helper()
	if !VecNear(got, want, tol) {
		t.Errorf("vector = %+v, want %+v (tol %g, |diff| %g)", got, want, tol, r3.Norm(r3.Sub(got, want)))
	}
}

// AssertFloatNear fails the test if got and want differ by more than tol.
// Two NaNs compare equal.
func AssertFloatNear(t testing.TB, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) && math.IsNaN(want) {
		return
	}
	if !scalar.EqualWithinAbs(got, want, tol) {
		t.Errorf("value = %g, want %g (tol %g)", got, want, tol)
	}
}
