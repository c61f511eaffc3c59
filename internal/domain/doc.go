// Package domain holds the shared types of the delivery gateway: warmup
// state, suppression entries, and the enums that describe why an address
// was taken out of rotation. Types here carry no behavior beyond trivial
// derivations; business logic lives in the service packages.
package domain
