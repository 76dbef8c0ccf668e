package memory_test

import (
	"testing"

	"github.com/caseflow/playbook/pkg/adapters/memory"
	"github.com/caseflow/playbook/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}
