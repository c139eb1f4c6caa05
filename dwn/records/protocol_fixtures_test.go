package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

const mailProtocolRecords = "https://example.com/protocol/mail"

func mailDefinitionRecords() dwn.ProtocolDefinition {
	return dwn.ProtocolDefinition{
		Protocol:  mailProtocolRecords,
		Published: true,
		Records: map[string]dwn.RuleSet{
			"thread": {
				Allow: []dwn.AllowRule{
					{Actor: dwn.ActorAuthor, ProtocolPath: "thread", Actions: []dwn.Action{dwn.ActionRead, dwn.ActionWrite}},
				},
			},
		},
	}
}

func signedMessageRecords(t *testing.T, author string, desc dwn.Descriptor, recordID, contextID string) dwn.Message {
	t.Helper()
	return dwn.Message{
		Descriptor: desc,
		RecordID:   recordID,
		ContextID:  contextID,
		Authorization: &dwn.Authorization{
			Signatures: []dwn.Signature{{Scheme: dwn.SchemeJWS, KeyID: author + "#1", Envelope: []byte("sig")}},
		},
	}
}

func putProtocolConfigureRecords(t *testing.T, deps Dependencies, tenant, author string, def dwn.ProtocolDefinition) {
	t.Helper()
	m := signedMessageRecords(t, author, dwn.Descriptor{
		Interface:        dwn.InterfaceProtocols,
		Method:           dwn.MethodConfigure,
		MessageTimestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Protocol:         def.Protocol,
		Definition:       &def,
	}, "", "")
	require.NoError(t, deps.Store.Put(context.Background(), tenant, m, dwnstore.Indexes{
		dwnstore.IndexInterface: string(dwn.InterfaceProtocols),
		dwnstore.IndexMethod:    string(dwn.MethodConfigure),
		dwnstore.IndexProtocol:  def.Protocol,
	}))
}
