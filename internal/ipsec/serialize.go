package ipsec

import (
	"github.com/binary-sequence-forks/yast-vpn/internal/record"
)

// SerializeConnections builds one "conn <name>" section per connection with its
// parameters in stored order.
func SerializeConnections(conns *Connections) []record.Record {
	out := make([]record.Record, 0, conns.Len())
	for _, conn := range conns.All() {
		entries := make([]record.Record, 0, conn.Params.Len())
		for _, param := range conn.Params.Entries() {
			entries = append(entries, record.Value(param.Key, param.Value))
		}
		out = append(out, record.Section(connKeyword+" "+conn.Name, entries...))
	}
	return out
}

// SerializeSecrets builds one flat record per secret, buckets in SecretTypes order.
func SerializeSecrets(secrets Secrets) []record.Record {
	out := make([]record.Record, 0, secrets.Len())
	for _, secret := range secrets.All() {
		out = append(out, record.Value(secret.ID, secretValue(secret)))
	}
	return out
}

// secretValue renders "TYPE content". RSA content names key material and stays bare;
// every other type is a text secret and is double-quoted.
func secretValue(secret Secret) string {
	if secret.Type == SecretRSA {
		return secret.Type.Keyword() + " " + secret.Content
	}
	return secret.Type.Keyword() + ` "` + secret.Content + `"`
}
