package ir

// Asset is a fungible unit type with a fixed total supply.
// Immutable after creation.
type Asset struct {
	Address     Address `json:"address"`
	Index       int64   `json:"index"` // Position in the sale registry
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	TotalSupply Amount  `json:"total_supply"`
	Creator     Address `json:"creator"`
}

// Sale tracks one asset's funding progress.
//
// Sold and Raised never decrease. Open goes true -> false exactly once.
// Held is the part of Raised still custodied by the engine; it drops to
// zero when the creator deposits after close.
type Sale struct {
	Asset   Address `json:"asset"`
	Creator Address `json:"creator"`
	Sold    Amount  `json:"sold"`
	Raised  Amount  `json:"raised"`
	Held    Amount  `json:"held"`
	Open    bool    `json:"open"`
}

// Balance is one (asset, holder) ledger entry.
type Balance struct {
	Asset  Address `json:"asset"`
	Holder Address `json:"holder"`
	Amount Amount  `json:"amount"`
}

// Vault is the fee vault balance together with the current engine owner,
// the only account allowed to debit it.
type Vault struct {
	Balance Amount  `json:"balance"`
	Owner   Address `json:"owner"`
}

// Commit is everything one successful operation changed: its events in seq
// order and the post-state of every row it touched. The store writes a
// commit in a single transaction.
type Commit struct {
	TxToken  string    `json:"tx_token"`
	Op       string    `json:"op"`
	Events   []Event   `json:"events"`
	Assets   []Asset   `json:"assets,omitempty"`
	Sales    []Sale    `json:"sales,omitempty"`
	Balances []Balance `json:"balances,omitempty"`
	Vault    *Vault    `json:"vault,omitempty"`
}

// LastSeq returns the seq of the commit's final event, or 0 when empty.
func (c Commit) LastSeq() int64 {
	if len(c.Events) == 0 {
		return 0
	}
	return c.Events[len(c.Events)-1].Seq
}
