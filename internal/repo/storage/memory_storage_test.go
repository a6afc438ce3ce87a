package storage_test

import (
	"testing"

	. "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
)

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	testStorageContract(t, NewMemoryStorage())
}
