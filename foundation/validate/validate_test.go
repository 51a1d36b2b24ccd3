package validate_test

import (
	"testing"

	"github.com/ardanlabs/chainsync/foundation/validate"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

type newTx struct {
	Sender    string  `json:"sender" validate:"required"`
	Recipient string  `json:"recipient" validate:"required"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

func TestCheck(t *testing.T) {
	t.Log("Given the need to validate models.")
	{
		t.Log("\tTest 0:\tWhen handling a model with missing fields.")
		{
			err := validate.Check(newTx{Amount: -1})
			fe := validate.GetFieldErrors(err)
			if fe == nil {
				t.Fatalf("\t%s\tTest 0:\tShould get back field errors: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get back field errors.", success)

			fields := fe.Fields()
			for _, name := range []string{"sender", "recipient", "amount"} {
				if _, exists := fields[name]; !exists {
					t.Fatalf("\t%s\tTest 0:\tShould get an error for field %q: %v", failed, name, fields)
				}
				t.Logf("\t%s\tTest 0:\tShould get an error for field %q.", success, name)
			}
		}

		t.Log("\tTest 1:\tWhen handling a valid model.")
		{
			if err := validate.Check(newTx{Sender: "bill", Recipient: "ed", Amount: 10}); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to validate the model: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to validate the model.", success)
		}

		t.Log("\tTest 2:\tWhen checking ids.")
		{
			if err := validate.CheckID(validate.GenerateID()); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould accept a generated id: %v", failed, err)
			}
			if err := validate.CheckID("not-an-id"); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject a malformed id.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould validate ids.", success)
		}
	}
}
