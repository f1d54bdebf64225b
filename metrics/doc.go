// Package metrics defines the Prometheus instruments shared by the capture
// loop, the recognition loop and the pipeline controller.
package metrics
