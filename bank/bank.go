// Package bank keeps the custodial balances backing the lending pool: a
// fungible balance book and a registry of non-fungible item owners. It
// implements the transfer primitives the ledger engine depends on.
package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"nftlend/storage"
)

var (
	// ErrInsufficientFunds rejects transfers exceeding the sender balance.
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	// ErrInvalidAmount rejects zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("bank: amount must be positive")
	// ErrNotItemOwner rejects item transfers from a non-owner.
	ErrNotItemOwner = errors.New("bank: sender does not own item")
	// ErrUnknownItem rejects transfers of unregistered items.
	ErrUnknownItem = errors.New("bank: unknown item")
	// ErrItemExists rejects registering an item id twice.
	ErrItemExists = errors.New("bank: item already registered")
)

// Book persists balances and item ownership in the key-value store.
// Transfers are atomic with respect to each other.
type Book struct {
	mu sync.Mutex
	db storage.Database
}

// NewBook wraps the given database.
func NewBook(db storage.Database) *Book {
	return &Book{db: db}
}

func balanceKey(addr string) []byte {
	return []byte("bank/balance/" + addr)
}

func itemKey(itemID uint64) []byte {
	return []byte("bank/item/" + strconv.FormatUint(itemID, 10))
}

// Balance returns the fungible balance for addr, zero when unknown.
func (b *Book) Balance(addr string) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(addr)
}

func (b *Book) balance(addr string) (*big.Int, error) {
	data, err := b.db.Get(balanceKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load balance %s: %w", addr, err)
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, fmt.Errorf("decode balance %s: %w", addr, err)
	}
	return balance, nil
}

func (b *Book) putBalance(addr string, balance *big.Int) error {
	encoded, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return fmt.Errorf("encode balance %s: %w", addr, err)
	}
	return b.db.Put(balanceKey(addr), encoded)
}

// Mint credits addr with amount. Used to seed balances at bootstrap.
func (b *Book) Mint(addr string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	balance, err := b.balance(addr)
	if err != nil {
		return err
	}
	return b.putBalance(addr, balance.Add(balance, amount))
}

// Transfer moves amount from one account to another, failing loudly when
// the sender balance does not cover it.
func (b *Book) Transfer(from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fromBalance, err := b.balance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	// A self-transfer must not re-apply the credit over the stale balance.
	if from == to {
		return nil
	}
	toBalance, err := b.balance(to)
	if err != nil {
		return err
	}
	if err := b.putBalance(from, fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}
	return b.putBalance(to, toBalance.Add(toBalance, amount))
}

// RegisterItem records the initial owner of a non-fungible item. Item ids
// are unique; re-registering would let anyone seize custodied collateral.
func (b *Book) RegisterItem(owner string, itemID uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	exists, err := b.db.Has(itemKey(itemID))
	if err != nil {
		return fmt.Errorf("check item %d: %w", itemID, err)
	}
	if exists {
		return ErrItemExists
	}
	return b.db.Put(itemKey(itemID), []byte(owner))
}

// ItemOwner returns the current owner of an item.
func (b *Book) ItemOwner(itemID uint64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.itemOwner(itemID)
}

func (b *Book) itemOwner(itemID uint64) (string, error) {
	data, err := b.db.Get(itemKey(itemID))
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrUnknownItem
	}
	if err != nil {
		return "", fmt.Errorf("load item %d: %w", itemID, err)
	}
	return string(data), nil
}

// TransferItem moves custody of an item after checking ownership.
func (b *Book) TransferItem(from, to string, itemID uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	owner, err := b.itemOwner(itemID)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotItemOwner
	}
	return b.db.Put(itemKey(itemID), []byte(to))
}

// Vault binds a book to the pool's custody account and satisfies the
// ledger engine's fungible and collateral transfer boundaries.
type Vault struct {
	book        *Book
	poolAccount string
}

// NewVault constructs a vault custodying pool funds under poolAccount.
func NewVault(book *Book, poolAccount string) *Vault {
	return &Vault{book: book, poolAccount: poolAccount}
}

// TransferIn pulls funds from a user into pool custody.
func (v *Vault) TransferIn(from string, amount *big.Int) error {
	return v.book.Transfer(from, v.poolAccount, amount)
}

// TransferOut releases pool funds to a user.
func (v *Vault) TransferOut(to string, amount *big.Int) error {
	return v.book.Transfer(v.poolAccount, to, amount)
}

// TransferItem moves a collateral item between parties.
func (v *Vault) TransferItem(from, to string, itemID uint64) error {
	return v.book.TransferItem(from, to, itemID)
}
