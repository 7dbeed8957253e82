// Package registry is the capability registry of operator kernels.
//
// A kernel is identified by an operator type and a target (e.g. "conv" on
// "cpu"). Go modules register the kernels they implement, together with a
// params struct whose `attr` tags name the node attributes the kernel reads.
// Kernel manifests loaded from the model description declare the same params
// with their types and defaults.
//
// During application startup the registry is populated and then validated so
// that the Go code and the manifests agree. After optimization, Validate
// checks that every node of the execution order has a kernel on the chosen
// target that supports its precision and can bind its attributes.
package registry
