// Package models holds the bundled cardiac cell models. Each model is a
// stateless sim.Model: its layout and defaults are fixed, and Bind returns
// a Derivative that reads every constant from the run's sim.Constants.
//
// All models follow the sim membrane convention: the returned ionic current
// is outward-positive and a negative stimulus depolarizes.
package models
