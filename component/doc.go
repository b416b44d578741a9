// Package component manages the lifecycle of long-lived resources such as
// client sessions. A Registry starts components in registration order and
// stops them in reverse.
package component
