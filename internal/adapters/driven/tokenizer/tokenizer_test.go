package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 1, Estimate("ab"))
	assert.Equal(t, 3, Estimate("licitação"))
}

func TestCounter_Count(t *testing.T) {
	c := New("gpt-4o-mini")

	empty := c.Count("")
	short := c.Count("Art. 62. A habilitação é a fase da licitação.")
	long := c.Count("Art. 62. A habilitação é a fase da licitação. Art. 18. O planejamento deve conter o orçamento.")

	// Holds for both the real encoding and the estimate.
	assert.Equal(t, 0, empty)
	assert.Positive(t, short)
	assert.Greater(t, long, short)
}

func TestCounter_UnknownModelStillCounts(t *testing.T) {
	c := New("gemini-2.0-flash")

	assert.Positive(t, c.Count("edital de pregão eletrônico"))
}
