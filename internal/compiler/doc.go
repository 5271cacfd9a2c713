// Package compiler turns CUE application declarations into ir.AppSpec.
//
// A declaration names the application, its resources with their bit
// widths and initial values, and its tasks with their static priorities
// and the resources each may claim:
//
//	app: {
//		name: "resource"
//		resources: {
//			X: {width: 32, init: 0}
//			Y: {width: 8}
//		}
//		tasks: {
//			EXTI1: {priority: 1, resources: ["X", "Y"]}
//			EXTI2: {priority: 3, resources: ["Y"], interarrival: 100}
//		}
//	}
//
// Identifiers are assigned in sorted label order so the same source always
// compiles to the same AppSpec and the same app hash. Structural problems
// are reported as *CompileError with the CUE source position; semantic
// validation (ceilings, accessors) happens in package resource.
package compiler
