package audit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfUnwrapsThroughLayers(t *testing.T) {
	t.Parallel()

	base := errors.New("connection refused")
	err := NewError(KindScrapeFailure, base)

	require.Equal(t, KindScrapeFailure, KindOf(err))
	require.ErrorIs(t, err, base)

	wrapped := fmt.Errorf("running audit: %w", err)
	require.Equal(t, KindScrapeFailure, KindOf(wrapped))

	require.Equal(t, Kind(""), KindOf(errors.New("untyped")))
	require.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorfFormatsMessage(t *testing.T) {
	t.Parallel()

	err := Errorf(KindPaymentVerification, "got %d, expected %d", 500, 997)
	require.Equal(t, KindPaymentVerification, KindOf(err))
	require.Contains(t, err.Error(), "payment_verification")
	require.Contains(t, err.Error(), "got 500, expected 997")
}
