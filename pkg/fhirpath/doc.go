// Package fhirpath provides a FHIRPath expression engine for evaluating
// path, filter, and projection expressions against FHIR resources (JSON).
//
// The common entry points are Evaluate (compile-and-run in one step) and
// Compile (parse once, evaluate repeatedly). EvaluateCached additionally
// goes through a package-level LRU expression cache, which is the
// recommended entry point for production, latency-sensitive call sites.
package fhirpath
