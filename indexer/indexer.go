// Package indexer maintains off-state lookup tables derived from events.
// The indexer writes to its own keyspace in the node's DB, outside the
// state prefixes, so its entries never affect the state root.
package indexer

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/opaline-labs/mintchain/events"
	"github.com/opaline-labs/mintchain/storage"
)

const ownerUnitPrefix = "idx:owner:unit:"

// OwnedUnit is one minted unit attributed to an owner.
type OwnedUnit struct {
	ClassID string `json:"class_id"`
	Nonce   uint64 `json:"nonce"`
	Index   uint32 `json:"index"`
	TxID    string `json:"tx_id"`
}

// Indexer subscribes to mint events and answers owner lookups.
type Indexer struct {
	db storage.DB
}

// New creates an Indexer over db and subscribes it to emitter.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	ix := &Indexer{db: db}
	emitter.Subscribe(events.EventUnitMinted, ix.onUnitMinted)
	return ix
}

func (ix *Indexer) onUnitMinted(ev events.Event) {
	owner, _ := ev.Data["owner"].(string)
	classID, _ := ev.Data["class_id"].(string)
	nonce, okNonce := ev.Data["nonce"].(uint64)
	index, okIndex := ev.Data["index"].(uint32)
	if owner == "" || classID == "" || !okNonce || !okIndex {
		log.Printf("[indexer] malformed unit_minted event in tx %s", ev.TxID)
		return
	}
	unit := OwnedUnit{ClassID: classID, Nonce: nonce, Index: index, TxID: ev.TxID}
	key := fmt.Sprintf("%s%s:%s:%d", ownerUnitPrefix, owner, classID, nonce)
	data, err := json.Marshal(unit)
	if err != nil {
		log.Printf("[indexer] marshal unit: %v", err)
		return
	}
	if err := ix.db.Set([]byte(key), data); err != nil {
		log.Printf("[indexer] store unit for %s: %v", owner, err)
	}
}

// UnitsByOwner returns every minted unit recorded for owner, in key order.
func (ix *Indexer) UnitsByOwner(owner string) ([]OwnedUnit, error) {
	prefix := ownerUnitPrefix + owner + ":"
	it := ix.db.NewIterator([]byte(prefix))
	defer it.Release()

	var units []OwnedUnit
	for it.Next() {
		var unit OwnedUnit
		if err := json.Unmarshal(it.Value(), &unit); err != nil {
			return nil, fmt.Errorf("corrupt index entry %q: %w", it.Key(), err)
		}
		units = append(units, unit)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return units, nil
}
