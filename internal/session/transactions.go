package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/widgetauth/internal/cache"
	"github.com/dropDatabas3/widgetauth/internal/oauth"
)

// Transactions implementa oauth.TransactionStore sobre cache.Client, con keys
// por sesión: una transacción sólo es visible desde la sesión que la creó.
type Transactions struct {
	cache cache.Client
}

func NewTransactions(c cache.Client) *Transactions { return &Transactions{cache: c} }

var _ oauth.TransactionStore = (*Transactions)(nil)

func txKey(sid, id string) string { return "tx:" + sid + ":" + id }

func (t *Transactions) Save(ctx context.Context, sid string, tx oauth.Transaction, ttl time.Duration) error {
	b, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, txKey(sid, tx.ID), string(b), ttl)
}

func (t *Transactions) Load(ctx context.Context, sid, id string) (*oauth.Transaction, error) {
	raw, err := t.cache.Get(ctx, txKey(sid, id))
	return decodeTx(raw, err)
}

// Take consume la transacción: de dos requests concurrentes sólo uno la obtiene.
func (t *Transactions) Take(ctx context.Context, sid, id string) (*oauth.Transaction, error) {
	raw, err := t.cache.Take(ctx, txKey(sid, id))
	return decodeTx(raw, err)
}

func decodeTx(raw string, err error) (*oauth.Transaction, error) {
	if cache.IsNotFound(err) {
		return nil, oauth.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	var tx oauth.Transaction
	if err := json.Unmarshal([]byte(raw), &tx); err != nil {
		return nil, oauth.ErrTransactionNotFound
	}
	return &tx, nil
}
