package lending

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"nftlend/storage"
)

// ledgerState is the persistence boundary the engine mutates through.
// Implementations return (nil, nil) for records that do not exist yet.
type ledgerState interface {
	GetPool(poolID string) (*Pool, error)
	PutPool(poolID string, pool *Pool) error
	GetPosition(poolID, addr string) (*Position, error)
	PutPosition(poolID string, position *Position) error
}

// Keeper persists pool and position records into a key-value store using
// RLP encoding.
type Keeper struct {
	db storage.Database
}

// NewKeeper wraps the given database.
func NewKeeper(db storage.Database) *Keeper {
	return &Keeper{db: db}
}

func poolKey(poolID string) []byte {
	return []byte("lending/pool/" + poolID)
}

func positionKey(poolID, addr string) []byte {
	return []byte("lending/position/" + poolID + "/" + addr)
}

// GetPool loads the pool record, or nil when the pool has not been created.
func (k *Keeper) GetPool(poolID string) (*Pool, error) {
	data, err := k.db.Get(poolKey(poolID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pool %s: %w", poolID, err)
	}
	pool := new(Pool)
	if err := rlp.DecodeBytes(data, pool); err != nil {
		return nil, fmt.Errorf("decode pool %s: %w", poolID, err)
	}
	ensurePoolDefaults(pool)
	return pool, nil
}

// PutPool stores the pool record.
func (k *Keeper) PutPool(poolID string, pool *Pool) error {
	if pool == nil {
		return ErrNilPool
	}
	ensurePoolDefaults(pool)
	encoded, err := rlp.EncodeToBytes(pool)
	if err != nil {
		return fmt.Errorf("encode pool %s: %w", poolID, err)
	}
	return k.db.Put(poolKey(poolID), encoded)
}

// GetPosition loads a user's position, or nil when none exists.
func (k *Keeper) GetPosition(poolID, addr string) (*Position, error) {
	data, err := k.db.Get(positionKey(poolID, addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load position %s/%s: %w", poolID, addr, err)
	}
	position := new(Position)
	if err := rlp.DecodeBytes(data, position); err != nil {
		return nil, fmt.Errorf("decode position %s/%s: %w", poolID, addr, err)
	}
	ensurePositionDefaults(position)
	return position, nil
}

// PutPosition stores the position record.
func (k *Keeper) PutPosition(poolID string, position *Position) error {
	if position == nil {
		return nil
	}
	ensurePositionDefaults(position)
	encoded, err := rlp.EncodeToBytes(position)
	if err != nil {
		return fmt.Errorf("encode position %s/%s: %w", poolID, position.Address, err)
	}
	return k.db.Put(positionKey(poolID, position.Address), encoded)
}

func ensurePoolDefaults(pool *Pool) {
	if pool == nil {
		return
	}
	if pool.TotalSupplyAssets == nil {
		pool.TotalSupplyAssets = big.NewInt(0)
	}
	if pool.TotalSupplyShares == nil {
		pool.TotalSupplyShares = big.NewInt(0)
	}
	if pool.TotalBorrowAssets == nil {
		pool.TotalBorrowAssets = big.NewInt(0)
	}
	if pool.TotalBorrowShares == nil {
		pool.TotalBorrowShares = big.NewInt(0)
	}
	if pool.LoanToValueWad == nil {
		pool.LoanToValueWad = big.NewInt(0)
	}
	if pool.MinSupplyAmount == nil {
		pool.MinSupplyAmount = big.NewInt(0)
	}
}

func ensurePositionDefaults(position *Position) {
	if position == nil {
		return
	}
	if position.SupplyShares == nil {
		position.SupplyShares = big.NewInt(0)
	}
	if position.BorrowShares == nil {
		position.BorrowShares = big.NewInt(0)
	}
}
