// Package core contains the saved object import pipeline: domain types, the
// stages that collect, validate, remap and create objects, and the Service
// that plans and runs them. Storage and transport adapters depend on this
// package; core does not depend on them.
package core
