package auctionhouse

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// memoProgram is the SPL memo v2 program.
var memoProgram = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

// MemoState tags an assembled transaction with the marketplace action it
// performs. Indexers keying off the memo payload recover the action
// without decoding the auction-house instructions themselves.
type MemoState uint8

const (
	MemoWithdraw MemoState = iota
	MemoOffer
	MemoListing
	MemoExecute
	MemoAccept
	MemoCancel
	MemoDeposit
)

func (s MemoState) String() string {
	switch s {
	case MemoWithdraw:
		return "withdraw"
	case MemoOffer:
		return "offer"
	case MemoListing:
		return "listing"
	case MemoExecute:
		return "execute"
	case MemoAccept:
		return "accept"
	case MemoCancel:
		return "cancel"
	case MemoDeposit:
		return "deposit"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// newMemoInstruction emits a single-byte memo signed by the acting wallet.
func newMemoInstruction(state MemoState, signer solana.PublicKey) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(signer, false, true),
	}
	return solana.NewInstruction(memoProgram, metas, []byte{byte(state)})
}

// MemoStateOf recovers the tag from an assembled memo instruction. It
// returns false when the instruction is not a single-byte memo.
func MemoStateOf(ix solana.Instruction) (MemoState, bool) {
	if !ix.ProgramID().Equals(memoProgram) {
		return 0, false
	}
	data, err := ix.Data()
	if err != nil || len(data) != 1 {
		return 0, false
	}
	return MemoState(data[0]), true
}
