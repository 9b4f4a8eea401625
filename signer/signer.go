// Package signer resolves network-bound Hedera signing accounts.
//
// An Operator binds an account id and private key to exactly one network
// for the duration of a single request. Key material is never cached or
// logged; callers close the Operator when the request ends.
package signer

import (
	"fmt"

	"github.com/hashgraph/hedera-sdk-go/v2"

	hederax402 "github.com/NirajBhattarai/hedera-x402-go"
)

// Operator is a signing account bound to one network, capable of freezing,
// signing, and submitting transactions there.
type Operator struct {
	// AccountID is the operator's Hedera account.
	AccountID hedera.AccountID

	// PrivateKey is the operator's signing key. In-memory only.
	PrivateKey hedera.PrivateKey

	// Network is the network identifier the operator is bound to.
	Network string

	client *hedera.Client
}

// Resolve binds raw key material to a network. It fails with
// ErrUnsupportedNetwork for any network outside the closed enum and with
// ErrInvalidKey for unparseable account ids or keys.
func Resolve(network, accountID, privateKey string) (*Operator, error) {
	config, err := hederax402.GetNetworkConfig(network)
	if err != nil {
		return nil, err
	}

	account, err := hedera.AccountIDFromString(accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: account id %q: %v", hederax402.ErrInvalidKey, accountID, err)
	}

	key, err := hedera.PrivateKeyFromString(privateKey)
	if err != nil {
		// Deliberately omits the key material from the message.
		return nil, fmt.Errorf("%w: unparseable private key", hederax402.ErrInvalidKey)
	}

	client, err := hedera.ClientForName(config.SDKName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hederax402.ErrUnsupportedNetwork, err)
	}
	client.SetOperator(account, key)

	return &Operator{
		AccountID:  account,
		PrivateKey: key,
		Network:    network,
		client:     client,
	}, nil
}

// Client returns the network-bound Hedera client.
func (o *Operator) Client() *hedera.Client {
	return o.client
}

// Close releases the operator's network client. Safe to call on a nil
// operator.
func (o *Operator) Close() error {
	if o == nil || o.client == nil {
		return nil
	}
	return o.client.Close()
}

// NewClient returns an operator-less client for the given network, used
// for freezing transactions that will be signed elsewhere.
func NewClient(network string) (*hedera.Client, error) {
	config, err := hederax402.GetNetworkConfig(network)
	if err != nil {
		return nil, err
	}
	client, err := hedera.ClientForName(config.SDKName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hederax402.ErrUnsupportedNetwork, err)
	}
	return client, nil
}
