package dwnstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBlobDataStoreRequiresClientAndContainer(t *testing.T) {
	_, err := NewBlobDataStore(nil, "records")
	require.ErrorIs(t, err, ErrOpConfigMissing)

	_, err = NewBlobDataStoreFromConnectionString("UseDevelopmentStorage=true", "")
	require.ErrorIs(t, err, ErrOpConfigMissing)
}
