// Package outputs glues configured topic patterns to named outputs.
//
// Each mapping in the outputs section of config.yaml becomes one managed
// subscription: inbound boolean payloads are parsed, optionally inverted,
// and applied through a Driver. The package ships a MemoryDriver; hardware
// backends implement the same interface.
package outputs
