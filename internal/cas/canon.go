// Copyright 2025 Chainanchor

package cas

import (
	"encoding/json"
	"sort"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// canonicalizeJSON returns a deterministic encoding of raw: map keys sorted
// recursively, arrays left in caller order. A simplified RFC8785-like pass,
// sufficient since every object we store is a plain struct marshaled
// through encoding/json rather than arbitrary client-supplied JSON.
func canonicalizeJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(canonicalizeValue(v))
}

func canonicalizeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(vv))
		for _, k := range keys {
			ordered[k] = canonicalizeValue(vv[k])
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return vv
	}
}

// deriveCID canonicalizes v and returns both its CID string and the
// canonical bytes, so callers can store the exact bytes they hashed.
func deriveCID(v interface{}) (string, []byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	canon, err := canonicalizeJSON(raw)
	if err != nil {
		return "", nil, err
	}
	sum, err := mh.Sum(canon, mh.SHA2_256, -1)
	if err != nil {
		return "", nil, err
	}
	c := cid.NewCidV1(cid.Raw, sum)
	return c.String(), canon, nil
}
