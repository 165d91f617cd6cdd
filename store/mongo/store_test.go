package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainpayid/chainpay/store"
	"github.com/chainpayid/chainpay/store/mongo"
	"github.com/chainpayid/chainpay/store/storetest"
)

// Set CHAINPAY_MONGO_URI to a replica set to run these tests. Each test uses
// and drops its own database.
func TestConformance(t *testing.T) {
	uri := os.Getenv("CHAINPAY_MONGO_URI")
	if uri == "" {
		t.Skip("CHAINPAY_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := mongo.Connect(ctx, uri, "chainpay_test")
		require.NoError(t, err)
		require.NoError(t, s.Drop(ctx))
		return s
	})
}
