package auctionhouse

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/ExpertVagabond/grape-art/internal/accounts"
)

// paymentRail abstracts over how a wallet funds the auction house. A
// native rail moves lamports straight from the wallet; an SPL rail moves
// tokens out of the wallet's associated token account under a temporary
// delegate approval.
type paymentRail struct {
	treasuryMint solana.PublicKey
	native       bool

	// SPL rails delegate spending to an ephemeral authority that signs
	// the funding instruction and is revoked afterwards.
	delegate *solana.Wallet
}

// newPaymentRail picks the rail from the instance's treasury mint.
// Wrapped SOL is the native rail.
func newPaymentRail(treasuryMint solana.PublicKey) *paymentRail {
	rail := &paymentRail{treasuryMint: treasuryMint, native: treasuryMint.Equals(solana.SolMint)}
	if !rail.native {
		rail.delegate = solana.NewWallet()
	}
	return rail
}

// paymentAccount is the account debited when funding: the wallet itself
// on the native rail, its associated token account otherwise.
func (r *paymentRail) paymentAccount(wallet solana.PublicKey) (solana.PublicKey, error) {
	if r.native {
		return wallet, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, r.treasuryMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive payment token account: %w", err)
	}
	return ata, nil
}

// transferAuthority signs the funding instruction: the wallet on the
// native rail, the ephemeral delegate otherwise.
func (r *paymentRail) transferAuthority(wallet solana.PublicKey) solana.PublicKey {
	if r.native {
		return wallet
	}
	return r.delegate.PublicKey()
}

// ensurePaymentAccount returns the ATA-create step when the wallet's
// payment token account does not exist yet. Both funding and withdrawal
// need the account in place before the program touches it.
func (r *paymentRail) ensurePaymentAccount(ctx context.Context, reader accounts.Reader, wallet solana.PublicKey) ([]solana.Instruction, error) {
	if r.native {
		return nil, nil
	}
	paymentAccount, err := r.paymentAccount(wallet)
	if err != nil {
		return nil, err
	}
	exists, err := reader.AccountExists(ctx, paymentAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to probe payment token account: %w", err)
	}
	if exists {
		return nil, nil
	}
	return []solana.Instruction{
		associatedtokenaccount.NewCreateInstruction(wallet, wallet, r.treasuryMint).Build(),
	}, nil
}

// preInstructions returns the approvals an SPL funding needs ahead of the
// deposit or buy. The native rail contributes nothing.
func (r *paymentRail) preInstructions(ctx context.Context, reader accounts.Reader, wallet solana.PublicKey, amount uint64) ([]solana.Instruction, error) {
	if r.native {
		return nil, nil
	}
	pre, err := r.ensurePaymentAccount(ctx, reader, wallet)
	if err != nil {
		return nil, err
	}
	paymentAccount, err := r.paymentAccount(wallet)
	if err != nil {
		return nil, err
	}
	approve, err := token.NewApproveInstruction(
		amount,
		paymentAccount,
		r.delegate.PublicKey(),
		wallet,
		nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build approve: %w", err)
	}
	pre = append(pre, approve)
	return pre, nil
}

// postInstructions revokes the ephemeral delegate after an SPL funding.
func (r *paymentRail) postInstructions(wallet solana.PublicKey) ([]solana.Instruction, error) {
	if r.native {
		return nil, nil
	}
	paymentAccount, err := r.paymentAccount(wallet)
	if err != nil {
		return nil, err
	}
	revoke, err := token.NewRevokeInstruction(paymentAccount, wallet, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build revoke: %w", err)
	}
	return []solana.Instruction{revoke}, nil
}

// signers returns the extra keys the rail's instructions need beyond the
// acting wallet.
func (r *paymentRail) signers() []solana.PrivateKey {
	if r.native {
		return nil
	}
	return []solana.PrivateKey{r.delegate.PrivateKey}
}

// escrowBalance reads the funds currently held in the buyer escrow on
// whichever rail the instance uses.
func (r *paymentRail) escrowBalance(ctx context.Context, reader accounts.Reader, escrow solana.PublicKey) (uint64, error) {
	if r.native {
		return reader.LamportBalance(ctx, escrow)
	}
	return reader.TokenBalance(ctx, escrow)
}

// capWithdrawal reconciles a requested withdrawal against the escrow
// balance. Capped mode clamps to what is actually held; exact mode
// refuses a shortfall outright.
func capWithdrawal(requested, available uint64, exact bool) (uint64, error) {
	if requested <= available {
		return requested, nil
	}
	if exact {
		return 0, fmt.Errorf("requested %d exceeds escrow balance %d: %w",
			requested, available, ErrInsufficientEscrowBalance)
	}
	return available, nil
}
