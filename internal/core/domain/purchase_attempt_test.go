package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/ordex-daemon/internal/core/domain"
)

func TestNewPurchaseAttempt(t *testing.T) {
	attempt := newPendingAttempt(t)
	require.NotEmpty(t, attempt.ID)
	require.True(t, attempt.IsPending())

	tests := []struct {
		name          string
		listingID     string
		buyerAddress  string
		inputs        []domain.Utxo
		psbt          string
		expectedError error
	}{
		{"missing_listing", "", testPayoutAddress, []domain.Utxo{testAsset}, "cHNidP8B", domain.ErrAttemptMissingListing},
		{"missing_buyer", "listing", "", []domain.Utxo{testAsset}, "cHNidP8B", domain.ErrAttemptMissingBuyerAddress},
		{"missing_inputs", "listing", testPayoutAddress, nil, "cHNidP8B", domain.ErrAttemptMissingInputs},
		{"missing_psbt", "listing", testPayoutAddress, []domain.Utxo{testAsset}, "", domain.ErrAttemptMissingPsbt},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attempt, err := domain.NewPurchaseAttempt(
				tt.listingID, tt.buyerAddress, testPayoutScript, testPayoutAddress,
				tt.inputs, tt.psbt, domain.FeeBreakdown{},
			)
			require.EqualError(t, err, tt.expectedError.Error())
			require.Nil(t, attempt)
		})
	}
}

func TestPurchaseAttemptTransitions(t *testing.T) {
	t.Run("broadcast", func(t *testing.T) {
		attempt := newPendingAttempt(t)
		require.NoError(t, attempt.Broadcast("txid"))
		require.True(t, attempt.IsBroadcasted())
		require.Equal(t, "txid", attempt.TxID)

		require.NoError(t, attempt.Broadcast("txid"))
		err := attempt.Fail("late failure")
		require.EqualError(t, err, domain.ErrAttemptMustBePending.Error())
	})

	t.Run("fail", func(t *testing.T) {
		attempt := newPendingAttempt(t)
		require.NoError(t, attempt.Fail("broadcast rejected"))
		require.True(t, attempt.IsFailed())
		require.Equal(t, "broadcast rejected", attempt.FailureReason)

		require.NoError(t, attempt.Fail("again"))
		require.Equal(t, "broadcast rejected", attempt.FailureReason)
		err := attempt.Broadcast("txid")
		require.EqualError(t, err, domain.ErrAttemptMustBePending.Error())
	})

	t.Run("missing_txid", func(t *testing.T) {
		err := newPendingAttempt(t).Broadcast("")
		require.EqualError(t, err, domain.ErrAttemptMissingTxID.Error())
	})
}

func newPendingAttempt(t *testing.T) *domain.PurchaseAttempt {
	attempt, err := domain.NewPurchaseAttempt(
		"listing", testPayoutAddress, testPayoutScript, testPayoutAddress,
		[]domain.Utxo{testAsset}, "cHNidP8B", domain.FeeBreakdown{MinerFee: 1490},
	)
	require.NoError(t, err)
	return attempt
}
