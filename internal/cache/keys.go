package cache

import "fmt"

func ActivationKeyKey(key string) string {
	return fmt.Sprintf("activation:%s", key)
}
