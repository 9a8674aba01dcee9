package bus

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	base := Interaction{SourceChannelID: "p1", CounterpartyID: "u1", Kind: KindMessage, RawText: "Is it still available?"}

	t.Run("stable across redelivery", func(t *testing.T) {
		again := base
		again.ReceivedAt = time.Now().Add(time.Minute)
		again.ExternalID = "m_other"
		assert.Equal(t, base.Fingerprint(), again.Fingerprint())
	})

	t.Run("differs by counterparty", func(t *testing.T) {
		other := base
		other.CounterpartyID = "u2"
		assert.NotEqual(t, base.Fingerprint(), other.Fingerprint())
	})

	t.Run("differs by text", func(t *testing.T) {
		other := base
		other.RawText = "What is the price?"
		assert.NotEqual(t, base.Fingerprint(), other.Fingerprint())
	})

	t.Run("comments key on comment id", func(t *testing.T) {
		a := Interaction{Kind: KindComment, ExternalID: "c_1", RawText: "nice"}
		b := Interaction{Kind: KindComment, ExternalID: "c_1", RawText: "edited", CounterpartyID: "x"}
		assert.Equal(t, Fingerprint("comment:c_1"), a.Fingerprint())
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "hello  there\n", "hello there"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.in))
		})
	}

	long := strings.Repeat("a", 200)
	assert.LessOrEqual(t, len([]rune(Preview(long))), previewWidth)
}
