package types

// Reserved payload field names. The ledger injects FieldEntryID and
// FieldTimestamp on enqueue; sealing builds aggregate payloads from
// FieldEntries and FieldMerkleRoot; the envelope codec owns FieldSignature
// and FieldSignedAt.
const (
	FieldEntryID    = "data_id"
	FieldTimestamp  = "timestamp"
	FieldEntries    = "entries"
	FieldMerkleRoot = "merkle_root"
	FieldSignature  = "signature"
	FieldSignedAt   = "signed_at"
)

// CopyPayload returns a new map with the same top-level fields. Values are
// shared, which is enough for the copy-before-annotate pattern used by
// Enqueue and Sign.
func CopyPayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// BlockEntries extracts the aggregated entry list from a sealed block
// payload. It returns nil for blocks that carry no entries, such as genesis.
func BlockEntries(payload map[string]any) []map[string]any {
	entries, ok := payload[FieldEntries].([]map[string]any)
	if !ok {
		return nil
	}
	return entries
}
