package auctionhouse

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/ExpertVagabond/grape-art/internal/accounts"
	"github.com/ExpertVagabond/grape-art/internal/config"
	"github.com/ExpertVagabond/grape-art/internal/core/metadata"
)

// StagePolicy selects which optional stages a flow runs. Full assembles
// receipt bookkeeping alongside every trade-state change; Legacy targets
// pre-receipt program deployments and skips receipts entirely.
type StagePolicy uint8

const (
	FullPolicy StagePolicy = iota
	LegacyPolicy
)

func (p StagePolicy) String() string {
	if p == LegacyPolicy {
		return "legacy"
	}
	return "full"
}

// InstructionSet is one assembled transaction: instructions in submission
// order plus every ephemeral key that must co-sign beyond the acting
// wallet.
type InstructionSet struct {
	Instructions []solana.Instruction
	Signers      []solana.PrivateKey
}

func (s *InstructionSet) add(ixs ...solana.Instruction) {
	s.Instructions = append(s.Instructions, ixs...)
}

func (s *InstructionSet) sign(keys ...solana.PrivateKey) {
	s.Signers = append(s.Signers, keys...)
}

// Kinds lists the wire identity of every instruction in order.
func (s *InstructionSet) Kinds() []string {
	kinds := make([]string, len(s.Instructions))
	for i, ix := range s.Instructions {
		kinds[i] = Kind(ix)
	}
	return kinds
}

// Assembler builds complete marketplace transactions against one
// auction-house instance. Assembly is all-or-nothing: any failed stage
// aborts the whole set and no partial result escapes.
type Assembler struct {
	cfg    *config.Marketplace
	reader accounts.Reader
	derive *Engine
	dao    *DAOResolver
	policy StagePolicy
	log    zerolog.Logger
}

// NewAssembler wires an assembler over the configured instance.
func NewAssembler(cfg *config.Marketplace, reader accounts.Reader, policy StagePolicy, log zerolog.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg,
		reader: reader,
		derive: NewEngine(cfg.Programs),
		dao:    NewDAOResolver(cfg.DAO, cfg.AuctionHouse),
		policy: policy,
		log:    log.With().Str("component", "assembler").Logger(),
	}
}

// instanceAccounts bundles the per-instance addresses every flow needs.
type instanceAccounts struct {
	address         solana.PublicKey
	authority       solana.PublicKey
	treasuryMint    solana.PublicKey
	feeAccount      solana.PublicKey
	treasury        solana.PublicKey
	programAsSigner Derived
}

func (a *Assembler) instance() (instanceAccounts, error) {
	house := a.cfg.AuctionHouse
	address := house.AddressKey()
	authority := house.AuthorityKey()
	treasuryMint := house.TreasuryMintKey()
	fee, err := a.derive.FeeAccount(address)
	if err != nil {
		return instanceAccounts{}, err
	}
	treasury, err := a.derive.TreasuryAccount(address)
	if err != nil {
		return instanceAccounts{}, err
	}
	pas, err := a.derive.ProgramAsSigner()
	if err != nil {
		return instanceAccounts{}, err
	}
	return instanceAccounts{
		address:         address,
		authority:       authority,
		treasuryMint:    treasuryMint,
		feeAccount:      fee.Address,
		treasury:        treasury.Address,
		programAsSigner: pas,
	}, nil
}

// ListParams describes a fixed-price listing.
type ListParams struct {
	Seller    solana.PublicKey
	TokenMint solana.PublicKey
	Price     uint64
	TokenSize uint64
}

// List assembles a sell against the instance, a listing receipt under the
// full policy, and the listing memo tag.
func (a *Assembler) List(ctx context.Context, p ListParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	set := &InstructionSet{}
	tradeState, err := a.appendSell(set, inst, p.Seller, p.TokenMint, p.Price, p.TokenSize)
	if err != nil {
		return nil, err
	}
	if a.policy == FullPolicy {
		if err := a.appendListingReceipt(set, tradeState.Address); err != nil {
			return nil, err
		}
	}
	set.add(newMemoInstruction(MemoListing, p.Seller))
	a.log.Debug().Str("seller", p.Seller.String()).Uint64("price", p.Price).
		Strs("kinds", set.Kinds()).Msg("assembled listing")
	return set, nil
}

// appendSell derives the seller trade states and adds the sell
// instruction, returning the derived seller trade state.
func (a *Assembler) appendSell(set *InstructionSet, inst instanceAccounts, seller, tokenMint solana.PublicKey, price, tokenSize uint64) (Derived, error) {
	tokenAccount, err := a.derive.AssociatedTokenAccount(seller, tokenMint)
	if err != nil {
		return Derived{}, err
	}
	meta, err := a.derive.Metadata(tokenMint)
	if err != nil {
		return Derived{}, err
	}
	tradeState, err := a.derive.TradeState(inst.address, seller, tokenAccount.Address, inst.treasuryMint, tokenMint, price, tokenSize)
	if err != nil {
		return Derived{}, err
	}
	freeTradeState, err := a.derive.FreeTradeState(inst.address, seller, tokenAccount.Address, inst.treasuryMint, tokenMint, tokenSize)
	if err != nil {
		return Derived{}, err
	}
	sell, err := a.newSellInstruction(sellAccounts{
		Wallet:          seller,
		TokenAccount:    tokenAccount.Address,
		Metadata:        meta.Address,
		Authority:       inst.authority,
		AuctionHouse:    inst.address,
		FeeAccount:      inst.feeAccount,
		TradeState:      tradeState.Address,
		FreeTradeState:  freeTradeState.Address,
		ProgramAsSigner: inst.programAsSigner.Address,
	}, sellArgs{
		TradeStateBump:      tradeState.Bump,
		FreeTradeStateBump:  freeTradeState.Bump,
		ProgramAsSignerBump: inst.programAsSigner.Bump,
		BuyerPrice:          price,
		TokenSize:           tokenSize,
	})
	if err != nil {
		return Derived{}, err
	}
	set.add(sell)
	return tradeState, nil
}

func (a *Assembler) appendListingReceipt(set *InstructionSet, tradeState solana.PublicKey) error {
	receipt, err := a.derive.ListingReceipt(tradeState)
	if err != nil {
		return err
	}
	handle := &ReceiptHandle{Kind: ListingReceiptKind, Address: receipt.Address, Bump: receipt.Bump}
	bookkeeper := solana.NewWallet()
	ix, err := a.printListingReceipt(handle, bookkeeper.PublicKey())
	if err != nil {
		return err
	}
	set.add(ix)
	set.sign(bookkeeper.PrivateKey)
	return nil
}

func (a *Assembler) appendBidReceipt(set *InstructionSet, tradeState solana.PublicKey) (solana.PublicKey, error) {
	receipt, err := a.derive.BidReceipt(tradeState)
	if err != nil {
		return solana.PublicKey{}, err
	}
	handle := &ReceiptHandle{Kind: BidReceiptKind, Address: receipt.Address, Bump: receipt.Bump}
	bookkeeper := solana.NewWallet()
	ix, err := a.printBidReceipt(handle, bookkeeper.PublicKey())
	if err != nil {
		return solana.PublicKey{}, err
	}
	set.add(ix)
	set.sign(bookkeeper.PrivateKey)
	return receipt.Address, nil
}

// OfferParams describes an escrow-backed offer on a listed token.
type OfferParams struct {
	Buyer     solana.PublicKey
	TokenMint solana.PublicKey
	Price     uint64
	TokenSize uint64
}

// Offer funds the buyer escrow and posts a public bid. The bid stays open
// until the seller accepts or the buyer cancels.
func (a *Assembler) Offer(ctx context.Context, p OfferParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	rail := newPaymentRail(inst.treasuryMint)
	set := &InstructionSet{}

	pre, err := rail.preInstructions(ctx, a.reader, p.Buyer, p.Price)
	if err != nil {
		return nil, err
	}
	set.add(pre...)
	set.sign(rail.signers()...)

	if err := a.appendDeposit(set, inst, rail, p.Buyer, p.Price); err != nil {
		return nil, err
	}
	tradeState, err := a.appendPublicBuy(ctx, set, inst, rail, p.Buyer, p.TokenMint, p.Price, p.TokenSize)
	if err != nil {
		return nil, err
	}
	post, err := rail.postInstructions(p.Buyer)
	if err != nil {
		return nil, err
	}
	set.add(post...)

	if a.policy == FullPolicy {
		if _, err := a.appendBidReceipt(set, tradeState.Address); err != nil {
			return nil, err
		}
	}
	set.add(newMemoInstruction(MemoOffer, p.Buyer))
	a.log.Debug().Str("buyer", p.Buyer.String()).Uint64("price", p.Price).
		Strs("kinds", set.Kinds()).Msg("assembled offer")
	return set, nil
}

func (a *Assembler) appendDeposit(set *InstructionSet, inst instanceAccounts, rail *paymentRail, wallet solana.PublicKey, amount uint64) error {
	paymentAccount, err := rail.paymentAccount(wallet)
	if err != nil {
		return err
	}
	escrow, err := a.derive.BuyerEscrow(inst.address, wallet)
	if err != nil {
		return err
	}
	deposit, err := a.newDepositInstruction(escrowAccounts{
		Wallet:            wallet,
		PaymentAccount:    paymentAccount,
		TransferAuthority: rail.transferAuthority(wallet),
		EscrowPayment:     escrow.Address,
		TreasuryMint:      inst.treasuryMint,
		Authority:         inst.authority,
		AuctionHouse:      inst.address,
		FeeAccount:        inst.feeAccount,
	}, escrowArgs{EscrowPaymentBump: escrow.Bump, Amount: amount})
	if err != nil {
		return err
	}
	set.add(deposit)
	return nil
}

func (a *Assembler) appendPublicBuy(ctx context.Context, set *InstructionSet, inst instanceAccounts, rail *paymentRail, buyer, tokenMint solana.PublicKey, price, tokenSize uint64) (Derived, error) {
	paymentAccount, err := rail.paymentAccount(buyer)
	if err != nil {
		return Derived{}, err
	}
	meta, err := a.derive.Metadata(tokenMint)
	if err != nil {
		return Derived{}, err
	}
	escrow, err := a.derive.BuyerEscrow(inst.address, buyer)
	if err != nil {
		return Derived{}, err
	}
	// Bids key the trade state to the seller-side token account holding
	// the listed token; the largest holder is the listed seller's ATA,
	// resolved lazily from the mint by convention.
	tokenAccount, err := a.listedTokenAccount(ctx, tokenMint)
	if err != nil {
		return Derived{}, err
	}
	tradeState, err := a.derive.TradeState(inst.address, buyer, tokenAccount, inst.treasuryMint, tokenMint, price, tokenSize)
	if err != nil {
		return Derived{}, err
	}
	buy, err := a.newPublicBuyInstruction(publicBuyAccounts{
		Wallet:            buyer,
		PaymentAccount:    paymentAccount,
		TransferAuthority: rail.transferAuthority(buyer),
		TreasuryMint:      inst.treasuryMint,
		TokenAccount:      tokenAccount,
		Metadata:          meta.Address,
		EscrowPayment:     escrow.Address,
		Authority:         inst.authority,
		AuctionHouse:      inst.address,
		FeeAccount:        inst.feeAccount,
		TradeState:        tradeState.Address,
	}, buyArgs{
		TradeStateBump:    tradeState.Bump,
		EscrowPaymentBump: escrow.Bump,
		BuyerPrice:        price,
		TokenSize:         tokenSize,
	})
	if err != nil {
		return Derived{}, err
	}
	set.add(buy)
	return tradeState, nil
}

// BuyParams describes an immediate purchase of an active listing.
type BuyParams struct {
	Buyer     solana.PublicKey
	Seller    solana.PublicKey
	TokenMint solana.PublicKey
	Price     uint64
	TokenSize uint64
}

// Buy assembles a matching bid and settles it against the seller's
// listing in one transaction, routing royalties per the token's verified
// creators.
func (a *Assembler) Buy(ctx context.Context, p BuyParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	rail := newPaymentRail(inst.treasuryMint)
	set := &InstructionSet{}

	pre, err := rail.preInstructions(ctx, a.reader, p.Buyer, p.Price)
	if err != nil {
		return nil, err
	}
	set.add(pre...)
	set.sign(rail.signers()...)

	resolution, err := a.resolveRoyalties(ctx, p.TokenMint, p.Price)
	if err != nil {
		return nil, err
	}
	buyerTradeState, err := a.appendPublicBuy(ctx, set, inst, rail, p.Buyer, p.TokenMint, p.Price, p.TokenSize)
	if err != nil {
		return nil, err
	}
	post, err := rail.postInstructions(p.Buyer)
	if err != nil {
		return nil, err
	}
	set.add(post...)

	var bidReceipt solana.PublicKey
	if a.policy == FullPolicy {
		bidReceipt, err = a.appendBidReceipt(set, buyerTradeState.Address)
		if err != nil {
			return nil, err
		}
	}
	if err := a.appendExecuteSale(ctx, set, inst, rail, p, buyerTradeState, resolution, bidReceipt); err != nil {
		return nil, err
	}
	set.add(newMemoInstruction(MemoExecute, p.Buyer))
	a.log.Debug().Str("buyer", p.Buyer.String()).Str("seller", p.Seller.String()).
		Uint64("price", p.Price).Strs("kinds", set.Kinds()).Msg("assembled buy")
	return set, nil
}

func (a *Assembler) resolveRoyalties(ctx context.Context, tokenMint solana.PublicKey, price uint64) (*metadata.Resolution, error) {
	metaAddr, err := a.derive.Metadata(tokenMint)
	if err != nil {
		return nil, err
	}
	meta, err := a.reader.Metadata(ctx, metaAddr.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata for %s: %w", tokenMint, err)
	}
	return metadata.ResolveRoyalties(meta, price)
}

// listedTokenAccount resolves the token account holding the listed token.
// Listings in this marketplace always sit in the seller's associated
// token account, which the reader tracks per mint.
func (a *Assembler) listedTokenAccount(ctx context.Context, tokenMint solana.PublicKey) (solana.PublicKey, error) {
	holder, err := a.reader.TokenHolder(ctx, tokenMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to resolve holder of %s: %w", tokenMint, err)
	}
	return holder, nil
}

func (a *Assembler) appendExecuteSale(ctx context.Context, set *InstructionSet, inst instanceAccounts, rail *paymentRail, p BuyParams, buyerTradeState Derived, resolution *metadata.Resolution, bidReceipt solana.PublicKey) error {
	sellerTokenAccount, err := a.derive.AssociatedTokenAccount(p.Seller, p.TokenMint)
	if err != nil {
		return err
	}
	metaAddr, err := a.derive.Metadata(p.TokenMint)
	if err != nil {
		return err
	}
	escrow, err := a.derive.BuyerEscrow(inst.address, p.Buyer)
	if err != nil {
		return err
	}
	sellerTradeState, err := a.derive.TradeState(inst.address, p.Seller, sellerTokenAccount.Address, inst.treasuryMint, p.TokenMint, p.Price, p.TokenSize)
	if err != nil {
		return err
	}
	freeTradeState, err := a.derive.FreeTradeState(inst.address, p.Seller, sellerTokenAccount.Address, inst.treasuryMint, p.TokenMint, p.TokenSize)
	if err != nil {
		return err
	}
	sellerPayment := p.Seller
	if !rail.native {
		sellerPayment, err = rail.paymentAccount(p.Seller)
		if err != nil {
			return err
		}
	}
	buyerTokenAccount, err := a.derive.AssociatedTokenAccount(p.Buyer, p.TokenMint)
	if err != nil {
		return err
	}
	sale, err := a.newExecuteSaleInstruction(executeSaleAccounts{
		Buyer:             p.Buyer,
		Seller:            p.Seller,
		TokenAccount:      sellerTokenAccount.Address,
		TokenMint:         p.TokenMint,
		Metadata:          metaAddr.Address,
		TreasuryMint:      inst.treasuryMint,
		EscrowPayment:     escrow.Address,
		SellerPayment:     sellerPayment,
		BuyerTokenAccount: buyerTokenAccount.Address,
		Authority:         inst.authority,
		AuctionHouse:      inst.address,
		FeeAccount:        inst.feeAccount,
		Treasury:          inst.treasury,
		BuyerTradeState:   buyerTradeState.Address,
		SellerTradeState:  sellerTradeState.Address,
		FreeTradeState:    freeTradeState.Address,
		ProgramAsSigner:   inst.programAsSigner.Address,
		CreatorAccounts:   resolution.RemainingAccounts,
	}, executeSaleArgs{
		EscrowPaymentBump:   escrow.Bump,
		FreeTradeStateBump:  freeTradeState.Bump,
		ProgramAsSignerBump: inst.programAsSigner.Bump,
		BuyerPrice:          p.Price,
		TokenSize:           p.TokenSize,
	})
	if err != nil {
		return err
	}
	set.add(sale)

	if a.policy == FullPolicy {
		listingReceipt, err := a.derive.ListingReceipt(sellerTradeState.Address)
		if err != nil {
			return err
		}
		purchaseReceipt, err := a.derive.PurchaseReceipt(sellerTradeState.Address, buyerTradeState.Address)
		if err != nil {
			return err
		}
		handle := &ReceiptHandle{Kind: PurchaseReceiptKind, Address: purchaseReceipt.Address, Bump: purchaseReceipt.Bump}
		bookkeeper := solana.NewWallet()
		ix, err := a.printPurchaseReceipt(handle, listingReceipt.Address, bidReceipt, bookkeeper.PublicKey())
		if err != nil {
			return err
		}
		set.add(ix)
		set.sign(bookkeeper.PrivateKey)
	}
	return nil
}

// AcceptOfferParams describes a seller taking an open bid, optionally
// unwinding an existing listing at a different price first.
type AcceptOfferParams struct {
	Seller        solana.PublicKey
	Buyer         solana.PublicKey
	TokenMint     solana.PublicKey
	Price         uint64
	TokenSize     uint64
	ListedAtPrice *uint64
}

// AcceptOffer re-lists the token at the offered price and settles against
// the standing bid. An existing listing at another price is cancelled in
// the same transaction.
func (a *Assembler) AcceptOffer(ctx context.Context, p AcceptOfferParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	rail := newPaymentRail(inst.treasuryMint)
	set := &InstructionSet{}

	if p.ListedAtPrice != nil && *p.ListedAtPrice != p.Price {
		if err := a.appendCancelListing(set, inst, p.Seller, p.TokenMint, *p.ListedAtPrice, p.TokenSize); err != nil {
			return nil, err
		}
	}
	sellerTradeState, err := a.appendSell(set, inst, p.Seller, p.TokenMint, p.Price, p.TokenSize)
	if err != nil {
		return nil, err
	}
	if a.policy == FullPolicy {
		if err := a.appendListingReceipt(set, sellerTradeState.Address); err != nil {
			return nil, err
		}
	}
	resolution, err := a.resolveRoyalties(ctx, p.TokenMint, p.Price)
	if err != nil {
		return nil, err
	}
	sellerTokenAccount, err := a.derive.AssociatedTokenAccount(p.Seller, p.TokenMint)
	if err != nil {
		return nil, err
	}
	buyerTradeState, err := a.derive.TradeState(inst.address, p.Buyer, sellerTokenAccount.Address, inst.treasuryMint, p.TokenMint, p.Price, p.TokenSize)
	if err != nil {
		return nil, err
	}
	var bidReceipt solana.PublicKey
	if a.policy == FullPolicy {
		receipt, err := a.derive.BidReceipt(buyerTradeState.Address)
		if err != nil {
			return nil, err
		}
		bidReceipt = receipt.Address
	}
	settle := BuyParams{
		Buyer:     p.Buyer,
		Seller:    p.Seller,
		TokenMint: p.TokenMint,
		Price:     p.Price,
		TokenSize: p.TokenSize,
	}
	if err := a.appendExecuteSale(ctx, set, inst, rail, settle, buyerTradeState, resolution, bidReceipt); err != nil {
		return nil, err
	}
	set.add(newMemoInstruction(MemoAccept, p.Seller))
	a.log.Debug().Str("seller", p.Seller.String()).Str("buyer", p.Buyer.String()).
		Uint64("price", p.Price).Strs("kinds", set.Kinds()).Msg("assembled accept-offer")
	return set, nil
}

// CancelListingParams unwinds a seller's active listing.
type CancelListingParams struct {
	Seller    solana.PublicKey
	TokenMint solana.PublicKey
	Price     uint64
	TokenSize uint64
}

// CancelListing voids the seller trade state and retires its receipt.
func (a *Assembler) CancelListing(ctx context.Context, p CancelListingParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	set := &InstructionSet{}
	if err := a.appendCancelListing(set, inst, p.Seller, p.TokenMint, p.Price, p.TokenSize); err != nil {
		return nil, err
	}
	set.add(newMemoInstruction(MemoCancel, p.Seller))
	a.log.Debug().Str("seller", p.Seller.String()).Uint64("price", p.Price).
		Strs("kinds", set.Kinds()).Msg("assembled cancel-listing")
	return set, nil
}

func (a *Assembler) appendCancelListing(set *InstructionSet, inst instanceAccounts, seller, tokenMint solana.PublicKey, price, tokenSize uint64) error {
	tokenAccount, err := a.derive.AssociatedTokenAccount(seller, tokenMint)
	if err != nil {
		return err
	}
	tradeState, err := a.derive.TradeState(inst.address, seller, tokenAccount.Address, inst.treasuryMint, tokenMint, price, tokenSize)
	if err != nil {
		return err
	}
	cancel, err := a.newCancelInstruction(cancelAccounts{
		Wallet:       seller,
		TokenAccount: tokenAccount.Address,
		TokenMint:    tokenMint,
		Authority:    inst.authority,
		AuctionHouse: inst.address,
		FeeAccount:   inst.feeAccount,
		TradeState:   tradeState.Address,
	}, cancelArgs{BuyerPrice: price, TokenSize: tokenSize})
	if err != nil {
		return err
	}
	set.add(cancel)
	if a.policy == FullPolicy {
		receipt, err := a.derive.ListingReceipt(tradeState.Address)
		if err != nil {
			return err
		}
		handle := &ReceiptHandle{Kind: ListingReceiptKind, Address: receipt.Address, Bump: receipt.Bump}
		ix, err := a.retireReceipt(handle)
		if err != nil {
			return err
		}
		set.add(ix)
	}
	return nil
}

// CancelListingReceipt retires only the listing receipt, leaving the
// trade state alone. Used to clean up a receipt whose listing was already
// voided out of band.
func (a *Assembler) CancelListingReceipt(ctx context.Context, p CancelListingParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	tokenAccount, err := a.derive.AssociatedTokenAccount(p.Seller, p.TokenMint)
	if err != nil {
		return nil, err
	}
	tradeState, err := a.derive.TradeState(inst.address, p.Seller, tokenAccount.Address, inst.treasuryMint, p.TokenMint, p.Price, p.TokenSize)
	if err != nil {
		return nil, err
	}
	receipt, err := a.derive.ListingReceipt(tradeState.Address)
	if err != nil {
		return nil, err
	}
	handle := &ReceiptHandle{Kind: ListingReceiptKind, Address: receipt.Address, Bump: receipt.Bump}
	ix, err := a.retireReceipt(handle)
	if err != nil {
		return nil, err
	}
	set := &InstructionSet{}
	set.add(ix)
	set.add(newMemoInstruction(MemoCancel, p.Seller))
	a.log.Debug().Str("seller", p.Seller.String()).Str("receipt", receipt.Address.String()).
		Msg("assembled receipt-only cancel")
	return set, nil
}

// CancelOfferParams unwinds a buyer's open bid and recovers its escrow.
type CancelOfferParams struct {
	Buyer     solana.PublicKey
	TokenMint solana.PublicKey
	Price     uint64
	TokenSize uint64
}

// CancelOffer voids the bid trade state, retires the bid receipt, and
// withdraws the escrowed funds back to the buyer. The withdrawal is
// capped at what the escrow actually holds.
func (a *Assembler) CancelOffer(ctx context.Context, p CancelOfferParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	rail := newPaymentRail(inst.treasuryMint)
	set := &InstructionSet{}

	tokenAccount, err := a.listedTokenAccount(ctx, p.TokenMint)
	if err != nil {
		return nil, err
	}
	tradeState, err := a.derive.TradeState(inst.address, p.Buyer, tokenAccount, inst.treasuryMint, p.TokenMint, p.Price, p.TokenSize)
	if err != nil {
		return nil, err
	}
	cancel, err := a.newCancelInstruction(cancelAccounts{
		Wallet:       p.Buyer,
		TokenAccount: tokenAccount,
		TokenMint:    p.TokenMint,
		Authority:    inst.authority,
		AuctionHouse: inst.address,
		FeeAccount:   inst.feeAccount,
		TradeState:   tradeState.Address,
	}, cancelArgs{BuyerPrice: p.Price, TokenSize: p.TokenSize})
	if err != nil {
		return nil, err
	}
	set.add(cancel)

	if a.policy == FullPolicy {
		receipt, err := a.derive.BidReceipt(tradeState.Address)
		if err != nil {
			return nil, err
		}
		handle := &ReceiptHandle{Kind: BidReceiptKind, Address: receipt.Address, Bump: receipt.Bump}
		ix, err := a.retireReceipt(handle)
		if err != nil {
			return nil, err
		}
		set.add(ix)
	}
	if err := a.appendWithdraw(ctx, set, inst, rail, p.Buyer, p.Price, false); err != nil {
		return nil, err
	}
	set.add(newMemoInstruction(MemoCancel, p.Buyer))
	a.log.Debug().Str("buyer", p.Buyer.String()).Uint64("price", p.Price).
		Strs("kinds", set.Kinds()).Msg("assembled cancel-offer")
	return set, nil
}

// WithdrawParams pulls funds out of the buyer escrow.
type WithdrawParams struct {
	Wallet solana.PublicKey
	Amount uint64

	// Exact refuses to assemble when the escrow holds less than Amount
	// instead of capping the withdrawal.
	Exact bool
}

// Withdraw returns escrowed funds to the wallet.
func (a *Assembler) Withdraw(ctx context.Context, p WithdrawParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	rail := newPaymentRail(inst.treasuryMint)
	set := &InstructionSet{}
	if err := a.appendWithdraw(ctx, set, inst, rail, p.Wallet, p.Amount, p.Exact); err != nil {
		return nil, err
	}
	set.add(newMemoInstruction(MemoWithdraw, p.Wallet))
	a.log.Debug().Str("wallet", p.Wallet.String()).Uint64("amount", p.Amount).
		Strs("kinds", set.Kinds()).Msg("assembled withdraw")
	return set, nil
}

func (a *Assembler) appendWithdraw(ctx context.Context, set *InstructionSet, inst instanceAccounts, rail *paymentRail, wallet solana.PublicKey, amount uint64, exact bool) error {
	escrow, err := a.derive.BuyerEscrow(inst.address, wallet)
	if err != nil {
		return err
	}
	available, err := rail.escrowBalance(ctx, a.reader, escrow.Address)
	if err != nil {
		return err
	}
	capped, err := capWithdrawal(amount, available, exact)
	if err != nil {
		return err
	}
	if capped != amount {
		a.log.Debug().Uint64("requested", amount).Uint64("capped", capped).
			Str("wallet", wallet.String()).Msg("withdrawal capped to escrow balance")
	}
	paymentAccount, err := rail.paymentAccount(wallet)
	if err != nil {
		return err
	}
	// On the token rail the destination account must exist before the
	// program credits it, and any lingering delegate is revoked after.
	create, err := rail.ensurePaymentAccount(ctx, a.reader, wallet)
	if err != nil {
		return err
	}
	set.add(create...)
	withdraw, err := a.newWithdrawInstruction(escrowAccounts{
		Wallet:         wallet,
		PaymentAccount: paymentAccount,
		EscrowPayment:  escrow.Address,
		TreasuryMint:   inst.treasuryMint,
		Authority:      inst.authority,
		AuctionHouse:   inst.address,
		FeeAccount:     inst.feeAccount,
	}, escrowArgs{EscrowPaymentBump: escrow.Bump, Amount: capped})
	if err != nil {
		return err
	}
	set.add(withdraw)
	post, err := rail.postInstructions(wallet)
	if err != nil {
		return err
	}
	set.add(post...)
	return nil
}

// DepositParams moves funds from the wallet into its buyer escrow.
type DepositParams struct {
	Wallet solana.PublicKey
	Amount uint64
}

// Deposit funds the buyer escrow ahead of future bids.
func (a *Assembler) Deposit(ctx context.Context, p DepositParams) (*InstructionSet, error) {
	inst, err := a.instance()
	if err != nil {
		return nil, err
	}
	rail := newPaymentRail(inst.treasuryMint)
	set := &InstructionSet{}

	pre, err := rail.preInstructions(ctx, a.reader, p.Wallet, p.Amount)
	if err != nil {
		return nil, err
	}
	set.add(pre...)
	set.sign(rail.signers()...)

	if err := a.appendDeposit(set, inst, rail, p.Wallet, p.Amount); err != nil {
		return nil, err
	}
	post, err := rail.postInstructions(p.Wallet)
	if err != nil {
		return nil, err
	}
	set.add(post...)
	set.add(newMemoInstruction(MemoDeposit, p.Wallet))
	a.log.Debug().Str("wallet", p.Wallet.String()).Uint64("amount", p.Amount).
		Strs("kinds", set.Kinds()).Msg("assembled deposit")
	return set, nil
}

// VoteList assembles a listing with a verified community wallet as the
// effective seller. The collective replaces whatever seller the params
// carry: trade states, escrows and token accounts all derive from it.
func (a *Assembler) VoteList(ctx context.Context, community solana.PublicKey, p ListParams) (*InstructionSet, error) {
	if _, err := a.dao.Resolve(community); err != nil {
		return nil, err
	}
	p.Seller = community
	return a.List(ctx, p)
}

// VoteOffer assembles an offer with a verified community wallet as the
// effective buyer.
func (a *Assembler) VoteOffer(ctx context.Context, community solana.PublicKey, p OfferParams) (*InstructionSet, error) {
	if _, err := a.dao.Resolve(community); err != nil {
		return nil, err
	}
	p.Buyer = community
	return a.Offer(ctx, p)
}

// VoteAcceptOffer settles a bid with a verified community wallet as the
// effective seller.
func (a *Assembler) VoteAcceptOffer(ctx context.Context, community solana.PublicKey, p AcceptOfferParams) (*InstructionSet, error) {
	if _, err := a.dao.Resolve(community); err != nil {
		return nil, err
	}
	p.Seller = community
	return a.AcceptOffer(ctx, p)
}
