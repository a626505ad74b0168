package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"messagic/testutil/testfs"
)

func setupLevelDB(t *testing.T) (*leveldb.DB, func()) {
	dir, done := testfs.NewTempDir(t)
	db, err := Open(dir)
	require.NoError(t, err)

	return db, func() {
		require.NoError(t, db.Close())
		done()
	}
}
