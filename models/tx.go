package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"gorm.io/gorm"
)

// txMaxAttempts bounds the retries on MySQL deadlock (1213) and
// lock-wait timeout (1205) before surfacing a concurrency conflict.
const txMaxAttempts = 3

// runInTx runs fn inside a transaction, rolling back on any error.
// Retryable MySQL errors restart the whole transaction; everything else is
// classified into the typed taxonomy and returned as-is.
func runInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()

	var err error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		tx := db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return WrapStorageError(tx.Error)
		}

		err = fn(tx)
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit().Error
		}

		if err == nil {
			return nil
		}
		if !IsRetryableTxError(err) {
			return ClassifyTxError(err)
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return ClassifyTxError(err)
}
