package auctionhouse

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestMemoRoundTrip(t *testing.T) {
	signer := solana.NewWallet().PublicKey()
	states := []MemoState{
		MemoWithdraw, MemoOffer, MemoListing, MemoExecute,
		MemoAccept, MemoCancel, MemoDeposit,
	}
	for _, state := range states {
		t.Run(state.String(), func(t *testing.T) {
			ix := newMemoInstruction(state, signer)
			require.Equal(t, kindMemo, Kind(ix))

			got, ok := MemoStateOf(ix)
			require.True(t, ok)
			require.Equal(t, state, got)

			metas := ix.Accounts()
			require.Len(t, metas, 1)
			require.Equal(t, signer, metas[0].PublicKey)
			require.True(t, metas[0].IsSigner)
		})
	}
}

func TestMemoStateOfRejectsForeignInstructions(t *testing.T) {
	ix := solana.NewInstruction(solana.SystemProgramID, nil, []byte{1})
	_, ok := MemoStateOf(ix)
	require.False(t, ok)
	require.Equal(t, kindUnknown, Kind(ix))
}

func TestMemoStateStrings(t *testing.T) {
	require.Equal(t, "withdraw", MemoWithdraw.String())
	require.Equal(t, "deposit", MemoDeposit.String())
	require.Equal(t, "state(42)", MemoState(42).String())
}
