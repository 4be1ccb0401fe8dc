// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on port interfaces; adapters are injected by
// cmd/docintel.
package services
