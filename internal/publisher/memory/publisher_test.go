package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()
	event := audit.CompletedEvent{
		AuditID:      "a1",
		URL:          "https://acme.test",
		Tier:         audit.TierFree,
		OverallScore: 64,
		CompletedAt:  time.Unix(1700000000, 0).UTC(),
	}

	id, err := p.Publish(context.Background(), "audit-completed", event)
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "audit-completed", msgs[0].Topic)
	require.Equal(t, event, msgs[0].Payload)

	p.Reset()
	require.Empty(t, p.Messages())
}
