package memory_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/chainsync/foundation/blockchain/database"
	"github.com/ardanlabs/chainsync/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func TestMemory(t *testing.T) {
	genesis := database.Block{Hash: "0000aa", PreviousHash: database.GenesisPreviousHash}
	b1 := database.Block{Hash: "0000bb", PreviousHash: "0000aa"}
	b2 := database.Block{Hash: "0000cc", PreviousHash: "0000bb"}

	t.Log("Given the need to keep a chain in memory.")
	{
		mem := memory.New()

		t.Log("\tTest 0:\tWhen writing blocks in order.")
		{
			for _, block := range []database.Block{genesis, b1, b2} {
				if err := mem.Write(block); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to write block %s: %v", failed, block.Hash, err)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould be able to write blocks.", success)

			if i, exists := mem.Index("0000bb"); !exists || i != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould index blocks by hash: %d %v", failed, i, exists)
			}
			t.Logf("\t%s\tTest 0:\tShould index blocks by hash.", success)

			latest, exists := mem.LatestBlock()
			if !exists || latest.Hash != b2.Hash {
				t.Fatalf("\t%s\tTest 0:\tShould return the tip: %s", failed, latest.Hash)
			}
			t.Logf("\t%s\tTest 0:\tShould return the tip.", success)
		}

		t.Log("\tTest 1:\tWhen writing a block that does not extend the tip.")
		{
			err := mem.Write(database.Block{Hash: "0000dd", PreviousHash: "0000aa"})
			if !errors.Is(err, memory.ErrOutOfOrder) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the block.", success)
		}

		t.Log("\tTest 2:\tWhen replacing and resetting the chain.")
		{
			mem.Replace([]database.Block{genesis})
			if mem.Len() != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould replace the chain: %d", failed, mem.Len())
			}
			if _, exists := mem.Index(b2.Hash); exists {
				t.Fatalf("\t%s\tTest 2:\tShould drop the old index.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould replace the chain.", success)

			mem.Reset()
			if _, exists := mem.LatestBlock(); exists {
				t.Fatalf("\t%s\tTest 2:\tShould reset the chain.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reset the chain.", success)
		}
	}
}
