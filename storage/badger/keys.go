package badger

import "fmt"

// Key prefixes for different data types
const (
	distillationPrefix = "disrec"
)

// makeDistillationKey generates a key for a distillation record by ID.
func makeDistillationKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", distillationPrefix, id))
}

// distillationKeyPrefix returns the iteration prefix for all records.
func distillationKeyPrefix() []byte {
	return []byte(distillationPrefix + ":")
}
