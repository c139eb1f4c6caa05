// Package protocol implements the ancestor-chain walk and rule-set
// evaluation that authorizes every Records operation against a protocol
// definition. Authorize is a pure function of its inputs: the same
// (tenant, subject, requester, store state) always yields the same
// decision (SPEC_FULL.md section 4.2, testable property 5).
package protocol

import (
	"context"
	"strings"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnauth"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
	"github.com/ianpatton/dwn-go/internal/dwnlock"
	"github.com/ianpatton/dwn-go/internal/dwnstore"
)

// Authorize evaluates whether requester may perform requiredAction against
// subject, a RecordsWrite; for a RecordsDelete, dwn/records.ApplyDelete
// passes the record's newest stored write as subject with requiredAction
// set to Write. subject must already carry the protocol,
// protocolPath, parentId, contextId and recordId of the record being
// acted on; for a RecordsRead the caller passes the newest stored write for
// the targeted recordId as subject, with requiredAction set to Read.
func Authorize(
	ctx context.Context,
	store dwnstore.MessageStore,
	cache *AncestorCache,
	tenant string,
	requester string,
	subject dwn.Message,
	requiredAction dwn.Action,
) error {
	chain, err := resolveAncestorChain(ctx, store, cache, tenant, subject)
	if err != nil {
		return err
	}

	protocolURI := subject.Descriptor.Protocol
	if protocolURI == "" {
		protocolURI = chain[0].Descriptor.Protocol
	}

	def, err := fetchProtocolDefinition(ctx, store, cache, tenant, protocolURI)
	if err != nil {
		return err
	}

	if requiredAction == dwn.ActionWrite {
		if err := verifyProtocolPath(chain, subject.Descriptor.ProtocolPath); err != nil {
			return err
		}
	}

	ruleSet, err := ruleSetAt(*def, subject.Descriptor.ProtocolPath)
	if err != nil {
		return err
	}

	if requiredAction == dwn.ActionWrite {
		if err := verifyRecordConstraints(ruleSet, subject.Descriptor); err != nil {
			return err
		}
	}

	if err := evaluateActions(chain, ruleSet, tenant, requester, requiredAction); err != nil {
		return err
	}

	if requiredAction == dwn.ActionWrite {
		if err := verifyAuthorContinuity(ctx, store, tenant, subject); err != nil {
			return err
		}
	}

	return nil
}

// resolveAncestorChain builds the root-first ancestor chain for subject,
// consulting cache first and populating it on a miss. The walk over
// descriptor.parentId is iterative, never recursive, per SPEC_FULL.md's
// design notes.
func resolveAncestorChain(ctx context.Context, store dwnstore.MessageStore, cache *AncestorCache, tenant string, subject dwn.Message) ([]dwn.Message, error) {
	if cached, ok := cache.Get(tenant, subject.RecordID); ok {
		return cached, nil
	}

	chain := []dwn.Message{subject}
	current := subject
	for current.Descriptor.ParentID != "" {
		parentID := current.Descriptor.ParentID
		results, err := store.Query(ctx, tenant, dwnstore.Filter{
			dwnstore.IndexInterface: dwnstore.Eq(string(dwn.InterfaceRecords)),
			dwnstore.IndexMethod:    dwnstore.Eq(string(dwn.MethodWrite)),
			dwnstore.IndexProtocol:  dwnstore.Eq(current.Descriptor.Protocol),
			dwnstore.IndexRecordID:  dwnstore.Eq(parentID),
			dwnstore.IndexContextID: dwnstore.Eq(current.ContextID),
		})
		if err != nil {
			return nil, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "AuthorizationStoreFailure", "querying ancestor write", err)
		}
		parent, ok := newestOf(results)
		if !ok {
			return nil, errAncestorMissing(parentID)
		}

		chain = append([]dwn.Message{parent}, chain...)
		current = parent
	}

	cache.Put(tenant, subject.RecordID, chain)
	return chain, nil
}

// newestOf returns the message with the greatest (messageTimestamp, CID)
// ordinal among results, or false if results is empty.
func newestOf(results []dwn.Message) (dwn.Message, bool) {
	if len(results) == 0 {
		return dwn.Message{}, false
	}
	best := results[0]
	bestCID, err := dwn.CID(best)
	if err != nil {
		return dwn.Message{}, false
	}
	bestOrdinal := dwn.OrdinalOf(best, bestCID)

	for _, m := range results[1:] {
		c, err := dwn.CID(m)
		if err != nil {
			continue
		}
		o := dwn.OrdinalOf(m, c)
		if o.Greater(bestOrdinal) {
			best, bestOrdinal = m, o
		}
	}
	return best, true
}

func fetchProtocolDefinition(ctx context.Context, store dwnstore.MessageStore, cache *AncestorCache, tenant, protocolURI string) (*dwn.ProtocolDefinition, error) {
	query := func() (*dwn.ProtocolDefinition, error) {
		results, err := store.Query(ctx, tenant, dwnstore.Filter{
			dwnstore.IndexInterface: dwnstore.Eq(string(dwn.InterfaceProtocols)),
			dwnstore.IndexMethod:    dwnstore.Eq(string(dwn.MethodConfigure)),
			dwnstore.IndexProtocol:  dwnstore.Eq(protocolURI),
		})
		if err != nil {
			return nil, dwnerrors.Wrap(dwnerrors.KindStoreFailure, "AuthorizationStoreFailure", "querying protocol definition", err)
		}
		newest, ok := newestOf(results)
		if !ok || newest.Descriptor.Definition == nil {
			return nil, errProtocolNotFound(protocolURI)
		}
		return newest.Descriptor.Definition, nil
	}

	if cache == nil || cache.protocolDefs == nil {
		return query()
	}
	return dwnlock.Fetch(cache.protocolDefs, tenant+"\x00"+protocolURI, query)
}

// verifyProtocolPath checks that declaredPath is exactly the concatenation
// of each ancestor's own terminal path segment, joined by "/".
func verifyProtocolPath(chain []dwn.Message, declaredPath string) error {
	segments := make([]string, 0, len(chain))
	for _, m := range chain {
		p := m.Descriptor.ProtocolPath
		if p == "" {
			continue
		}
		parts := strings.Split(p, "/")
		segments = append(segments, parts[len(parts)-1])
	}
	expected := strings.Join(segments, "/")
	if expected != declaredPath {
		return errIncorrectProtocolPath(expected, declaredPath)
	}
	return nil
}

// ruleSetAt traverses def's nested Records map segment by segment,
// iteratively, never recursively.
func ruleSetAt(def dwn.ProtocolDefinition, protocolPath string) (dwn.RuleSet, error) {
	if protocolPath == "" {
		return dwn.RuleSet{}, errMissingRuleSet(protocolPath)
	}
	segments := strings.Split(protocolPath, "/")

	node, ok := def.Records[segments[0]]
	if !ok {
		return dwn.RuleSet{}, errMissingRuleSet(protocolPath)
	}
	for _, seg := range segments[1:] {
		node, ok = node.Records[seg]
		if !ok {
			return dwn.RuleSet{}, errMissingRuleSet(protocolPath)
		}
	}
	return node, nil
}

func verifyRecordConstraints(ruleSet dwn.RuleSet, desc dwn.Descriptor) error {
	constraint := ruleSet.RecordDefinition
	if constraint == nil {
		return nil
	}
	if constraint.Schema != "" && constraint.Schema != desc.Schema {
		return errInvalidRecordDefinition("declared schema does not match the record definition's schema")
	}
	if len(constraint.DataFormats) > 0 && !contains(constraint.DataFormats, desc.DataFormat) {
		return errInvalidRecordDefinition("declared dataFormat is not among the record definition's allowed dataFormats")
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// ancestorAtPath finds the chain entry whose own protocolPath equals path,
// the anchor an Author/Recipient allow rule references.
func ancestorAtPath(chain []dwn.Message, path string) (dwn.Message, bool) {
	for _, m := range chain {
		if m.Descriptor.ProtocolPath == path {
			return m, true
		}
	}
	return dwn.Message{}, false
}

// authorOf recovers the DID that signed m from its own first signature,
// since the engine does not honor delegated-grant authorship inside
// protocol authorization (SPEC_FULL.md section 9's recorded decision).
func authorOf(m dwn.Message) (string, error) {
	if m.Authorization == nil || len(m.Authorization.Signatures) == 0 {
		return "", errMalformedAuthorization("message has no authorization signatures")
	}
	return dwnauth.DIDFromKeyID(m.Authorization.Signatures[0].KeyID), nil
}

func evaluateActions(chain []dwn.Message, ruleSet dwn.RuleSet, tenant, requester string, required dwn.Action) error {
	if len(ruleSet.Allow) == 0 {
		if requester == tenant {
			return nil
		}
		return errUnauthorizedNoAllowRule()
	}

	granted := make(map[dwn.Action]bool)
	for _, rule := range ruleSet.Allow {
		switch rule.Actor {
		case dwn.ActorAnyone:
			for _, a := range rule.Actions {
				granted[a] = true
			}
		case dwn.ActorAuthor:
			anc, ok := ancestorAtPath(chain, rule.ProtocolPath)
			if !ok {
				continue
			}
			author, err := authorOf(anc)
			if err == nil && author == requester {
				for _, a := range rule.Actions {
					granted[a] = true
				}
			}
		case dwn.ActorRecipient:
			anc, ok := ancestorAtPath(chain, rule.ProtocolPath)
			if !ok {
				continue
			}
			if anc.Descriptor.Recipient == requester {
				for _, a := range rule.Actions {
					granted[a] = true
				}
			}
		}
	}

	if granted[required] {
		return nil
	}
	return errActionNotAllowed(string(required))
}

// verifyAuthorContinuity enforces that a non-initial write's author equals
// the author of its own record's initial write. The initial write is fetched
// directly by its entryId index rather than read off chain[0]: chain[0] is
// the root of the protocol ancestor walk over descriptor.parentId, which
// names a different record entirely (e.g. a "thread" a "mail" child points
// to) whenever subject is not itself a protocol-root write.
func verifyAuthorContinuity(ctx context.Context, store dwnstore.MessageStore, tenant string, subject dwn.Message) error {
	initial, err := dwn.IsInitialWrite(subject, tenant)
	if err != nil {
		return dwnerrors.Wrap(dwnerrors.KindMalformed, "AuthorizationMalformedMessage", "computing entryId", err)
	}
	if initial {
		return nil
	}

	results, err := store.Query(ctx, tenant, dwnstore.Filter{
		dwnstore.IndexInterface: dwnstore.Eq(string(dwn.InterfaceRecords)),
		dwnstore.IndexMethod:    dwnstore.Eq(string(dwn.MethodWrite)),
		dwnstore.IndexEntryID:   dwnstore.Eq(subject.RecordID),
	})
	if err != nil {
		return dwnerrors.Wrap(dwnerrors.KindStoreFailure, "AuthorizationStoreFailure", "querying initial write", err)
	}
	initialWrite, ok := newestOf(results)
	if !ok {
		return errAncestorMissing(subject.RecordID)
	}

	initialAuthor, err := authorOf(initialWrite)
	if err != nil {
		return err
	}
	subjectAuthor, err := authorOf(subject)
	if err != nil {
		return err
	}
	if initialAuthor != subjectAuthor {
		return errAuthorMismatch()
	}
	return nil
}
