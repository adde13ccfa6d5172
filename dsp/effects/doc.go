// Package effects provides nonlinear processors for the transform pipeline.
//
// Frequency-domain processors live in the stretch and pitch subpackages;
// dynamics processors live in the dynamics subpackage.
package effects
