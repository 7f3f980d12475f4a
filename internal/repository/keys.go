package repository

import "fmt"

// Per-symbol key layout. The store applies the service prefix, so
// these stay relative.
func biasKey(symbol string) string      { return fmt.Sprintf("bias:%s", symbol) }
func changesKey(symbol string) string   { return fmt.Sprintf("changes:%s", symbol) }
func decisionsKey(symbol string) string { return fmt.Sprintf("decisions:%s", symbol) }
func positionsKey(symbol string) string { return fmt.Sprintf("positions:%s", symbol) }
func sessionKey(symbol string) string   { return fmt.Sprintf("session:%s", symbol) }

// symbolKeys lists every key a symbol can own, in wipe order.
func symbolKeys(symbol string) []string {
	return []string{
		biasKey(symbol),
		changesKey(symbol),
		decisionsKey(symbol),
		positionsKey(symbol),
		sessionKey(symbol),
	}
}
