/*
Package wallet manages per-user balances inside a ledger unit of work.

Balances are kept in the base currency. Credit and Debit convert the entered
amount through the currency converter and persist the new balance with an
optimistic version check, so the caller's unit of work either commits the
mutation or fails with repositories.ErrVersionConflict.

Usage:

	store := wallet.NewStore(wallet.StoreConfig{
		Converter: converter,
		Cache:     cacheService,
		Logger:    logger,
	})

	err := repo.WithinTx(ctx, func(tx repositories.Tx) error {
		w, err := store.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		_, err = store.Debit(ctx, tx, w, amount, "USD")
		return err
	})

	// After commit
	store.Invalidate(ctx, userID)

Balance reads outside a unit of work go through a read-through cache that
Invalidate clears.
*/
package wallet
